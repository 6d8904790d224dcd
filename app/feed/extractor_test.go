package feed

import (
	"strings"
	"testing"
)

func TestExtractorRun(t *testing.T) {
	page := `<!DOCTYPE html>
<html>
<head><title>Medical Device Recall Announcement</title></head>
<body>
	<nav><a href="/">Home</a><a href="/about">About</a></nav>
	<article>
		<h1>Medical Device Recall Announcement</h1>
		<p>The manufacturer has initiated a voluntary recall of the affected infusion pumps after receiving multiple reports of unexpected shutdowns during operation. Patients relying on continuous medication delivery may be at serious risk if the device stops without warning.</p>
		<p>Healthcare facilities should immediately quarantine affected units and switch patients to alternative delivery methods. The recall covers all units manufactured between January and June, identified by serial numbers beginning with the affected lot prefixes listed in the official notice.</p>
		<p>Customers with questions about this recall should contact the manufacturer's support line. Adverse events related to this device should be reported through the standard reporting program for medical products.</p>
	</article>
	<footer>Copyright notice and unrelated boilerplate text.</footer>
</body>
</html>`

	extractor := NewExtractor()
	content, err := extractor.Run([]byte(page), "https://example.com/recall-announcement")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if !strings.Contains(content, "voluntary recall") {
		t.Errorf("Expected extracted content to include article text, got: %.100s", content)
	}
}

func TestExtractorEmptyInput(t *testing.T) {
	extractor := NewExtractor()
	if _, err := extractor.Run(nil, "https://example.com/page"); err == nil {
		t.Error("Expected error for empty HTML data")
	}
}
