package ocr

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJoinTextFiltersLowConfidence(t *testing.T) {
	results := []Result{
		{Text: "hola", Confidence: 0.9},
		{Text: "ruido", Confidence: 0.3},
		{Text: "mundo", Confidence: 0.6},
	}
	assert.Equal(t, "hola mundo", JoinText(results))
}

func TestJoinTextPreservesDetectionOrder(t *testing.T) {
	results := []Result{
		{Text: "uno", Confidence: 0.8},
		{Text: "dos", Confidence: 0.8},
		{Text: "tres", Confidence: 0.8},
	}
	assert.Equal(t, "uno dos tres", JoinText(results))
}

func TestJoinTextSkipsBlankFragments(t *testing.T) {
	results := []Result{
		{Text: "  ", Confidence: 0.9},
		{Text: "texto", Confidence: 0.9},
	}
	assert.Equal(t, "texto", JoinText(results))
}

func TestJoinTextEmpty(t *testing.T) {
	assert.Equal(t, "", JoinText(nil))
}

func TestParseTSV(t *testing.T) {
	output := "level\tpage_num\tblock_num\tpar_num\tline_num\tword_num\tleft\ttop\twidth\theight\tconf\ttext\n" +
		"1\t1\t0\t0\t0\t0\t0\t0\t640\t480\t-1\t\n" +
		"5\t1\t1\t1\t1\t1\t10\t20\t50\t15\t91\thola\n" +
		"5\t1\t1\t1\t1\t2\t70\t20\t60\t15\t34\tborroso\n" +
		"5\t1\t1\t1\t1\t3\t140\t20\t55\t15\t88\tmundo\n"

	results := parseTSV(output)
	assert.Len(t, results, 3)

	assert.Equal(t, "hola", results[0].Text)
	assert.InDelta(t, 0.91, results[0].Confidence, 1e-9)
	assert.Equal(t, image.Rect(10, 20, 60, 35), results[0].BBox)

	assert.Equal(t, "hola mundo", JoinText(results))
}

func TestParseTSVMalformedRows(t *testing.T) {
	output := "header\nshort\trow\n"
	assert.Empty(t, parseTSV(output))
}

func TestMockRecognizerRecordsCalls(t *testing.T) {
	m := NewMockRecognizer([]Result{{Text: "hola", Confidence: 0.9}}, nil)

	results, err := m.Recognize("dibujo.png")
	assert.NoError(t, err)
	assert.Equal(t, "hola", JoinText(results))
	assert.Equal(t, []string{"dibujo.png"}, m.Calls())
}
