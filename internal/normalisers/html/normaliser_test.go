package html

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragchat/internal/core/domain"
)

func TestNormalise_Success(t *testing.T) {
	src := `<html><head><title>Test &amp; Page</title><style>p{}</style></head>
<body><script>alert(1)</script><h1>Heading</h1><p>Hello   World</p><!-- hidden -->
<ul><li>One</li><li>Two</li></ul><p>Fish &lt;3 chips<br/>New line</p></body></html>`

	result, err := New().Normalise(context.Background(), &domain.RawDocument{Filename: "page.html", Content: []byte(src)})

	require.NoError(t, err)
	doc := result.Document
	assert.Equal(t, "Test & Page", doc.Title)
	assert.Equal(t, "Heading\nHello World\nOne\nTwo\nFish <3 chips\nNew line", doc.Content)
	assert.Equal(t, "html", doc.Metadata[domain.MetaFormat])
}

func TestNormalise_TitleFallback(t *testing.T) {
	result, err := New().Normalise(context.Background(), &domain.RawDocument{Filename: "about_us.htm", Content: []byte("<p>x</p>")})

	require.NoError(t, err)
	assert.Equal(t, "about us", result.Document.Title)
}

func TestNormalise_Nil(t *testing.T) {
	_, err := New().Normalise(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
