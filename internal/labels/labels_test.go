package labels

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender_ProducesPDF(t *testing.T) {
	var buf bytes.Buffer
	err := Render(&buf, "62x100", 1, []Label{
		{AssetName: "Air Handler 3", AssetTag: "E-1-0042", Location: "Plant Room"},
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")), "output should be a PDF document")
}

func TestRender_UnsupportedSize(t *testing.T) {
	var buf bytes.Buffer
	err := Render(&buf, "99x99", 1, []Label{{AssetName: "x", AssetTag: "y"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported label size")
}

func TestRender_CopiesProduceLargerDocument(t *testing.T) {
	item := []Label{{AssetName: "Pump", AssetTag: "P-2-0001"}}

	var one, three bytes.Buffer
	require.NoError(t, Render(&one, "29x90", 1, item))
	require.NoError(t, Render(&three, "29x90", 3, item))

	assert.Greater(t, three.Len(), one.Len())
}

func TestSupportedSizes(t *testing.T) {
	sizes := SupportedSizes()
	assert.Contains(t, sizes, "62x100")
	assert.Contains(t, sizes, "17x54")
}
