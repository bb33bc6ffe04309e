package docbuild

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragchat/internal/core/domain"
)

func TestTitleFromFilename(t *testing.T) {
	tests := map[string]string{
		"/path/to/my_document.pdf": "my document",
		"annual-report-2024.docx":  "annual report 2024",
		"README":                   "README",
		"notes.tar.gz":             "notes.tar",
		"":                         "",
	}
	for in, want := range tests {
		assert.Equal(t, want, TitleFromFilename(in), in)
	}
}

func TestFirstLineTitle(t *testing.T) {
	assert.Equal(t, "Title", FirstLineTitle("\n\n  Title  \nbody", 200))
	assert.Equal(t, "Short", FirstLineTitle(string(make([]byte, 250))+"\nShort\n", 200))
	assert.Equal(t, "", FirstLineTitle("", 200))
	assert.Equal(t, "", FirstLineTitle("this line is too long", 5))
}

func TestCopyMetadata(t *testing.T) {
	assert.Nil(t, CopyMetadata(nil))

	src := map[string]any{"a": 1}
	dst := CopyMetadata(src)
	dst["b"] = 2
	assert.Len(t, src, 1)
	assert.Equal(t, 1, dst["a"])
}

func TestResult(t *testing.T) {
	raw := &domain.RawDocument{
		Filename: "/uploads/quarterly_report.pdf",
		MIMEType: "application/pdf",
		Metadata: map[string]any{"uploader": "cli"},
	}

	res := Result(raw, "", "body text", "pdf")

	require.NotNil(t, res)
	doc := res.Document
	assert.NotEmpty(t, doc.ID)
	assert.Equal(t, "quarterly_report.pdf", doc.Filename)
	assert.Equal(t, "quarterly report", doc.Title)
	assert.Equal(t, "body text", doc.Content)
	assert.Equal(t, "pdf", doc.Metadata[domain.MetaFormat])
	assert.Equal(t, "application/pdf", doc.Metadata[domain.MetaMIMEType])
	assert.Equal(t, "cli", doc.Metadata["uploader"])
	assert.False(t, doc.CreatedAt.IsZero())
	assert.NotContains(t, raw.Metadata, domain.MetaFormat)
}
