package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDataURI(t *testing.T) {
	uri := EncodeDataURI("application/pdf", []byte("%PDF-1.4"))
	assert.Equal(t, "data:application/pdf;base64,JVBERi0xLjQ=", uri)
}

func TestParseDataURIRoundTrip(t *testing.T) {
	inputs := [][]byte{
		{},
		[]byte("hello"),
		{0x00, 0xff, 0x10, 0x80, 0x7f},
		[]byte("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n1 0 obj"),
	}
	for _, data := range inputs {
		mimeType, decoded, err := ParseDataURI(EncodeDataURI("application/pdf", data))
		require.NoError(t, err)
		assert.Equal(t, "application/pdf", mimeType)
		assert.Equal(t, len(data), len(decoded))
		assert.Equal(t, string(data), string(decoded))
	}
}

func TestParseDataURIRejectsMalformed(t *testing.T) {
	cases := map[string]string{
		"no scheme":      "application/pdf;base64,AAAA",
		"no base64":      "data:application/pdf,hello",
		"no mime":        "data:;base64,AAAA",
		"bad mime":       "data:pdf;base64,AAAA",
		"bad payload":    "data:application/pdf;base64,!!!",
		"empty string":   "",
		"plain sentence": "what is this document about?",
	}
	for name, uri := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := ParseDataURI(uri)
			assert.Error(t, err)
		})
	}
}

func TestTypedErrorsMatchSentinels(t *testing.T) {
	cause := errors.New("quota exceeded")

	upstream := NewUpstreamError(cause)
	assert.ErrorIs(t, upstream, ErrUpstreamFailure)
	assert.ErrorIs(t, upstream, cause)
	assert.Equal(t, "quota exceeded", upstream.Error())

	load := &LoadError{Kind: ErrReadFailure, Err: cause}
	assert.ErrorIs(t, load, ErrReadFailure)
	assert.NotErrorIs(t, load, ErrEmptyExtraction)

	validation := &ValidationError{Kind: ErrTooShort}
	var target *ValidationError
	require.ErrorAs(t, validation, &target)
	assert.ErrorIs(t, validation, ErrTooShort)
}

func TestExtractTextMapsBytesToCodePoints(t *testing.T) {
	text := ExtractText([]byte{'A', 0xe9, 0x00, 0xff})
	assert.Equal(t, []rune{'A', 'é', 0, 'ÿ'}, []rune(text))
	assert.Empty(t, ExtractText(nil))
}
