package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgress(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgress(&buf, 100, "reading")
	p.Add(40)
	p.Add(60)
	p.Finish()

	out := buf.String()
	assert.Contains(t, out, "reading")
	assert.True(t, strings.HasSuffix(out, "\n"))
}

func TestFormatHelpers(t *testing.T) {
	assert.Contains(t, FormatSuccess("done"), SuccessIcon+" done")
	assert.Contains(t, FormatError("bad"), "bad")
	assert.Contains(t, RenderBox("Title", "body"), "body")
}
