package plugins

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"

	"legalcheck-backend/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 1x1 transparent PNG.
const pngBase64 = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg=="

func TestDecodeImage(t *testing.T) {
	img, err := DecodeImage("data:image/png;base64," + pngBase64)
	require.NoError(t, err)
	assert.Equal(t, "image/png", img.MIMEType)
	assert.NotEmpty(t, img.Data)

	_, err = DecodeImage("   ")
	assert.ErrorIs(t, err, ErrEmptyImage)

	_, err = DecodeImage("%%%not-base64%%%")
	assert.Error(t, err)

	raw, err := DecodeImage(base64.StdEncoding.EncodeToString([]byte("plain text bytes")))
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", raw.MIMEType)
}

type stubOCR struct {
	text string
	err  error
}

func (s stubOCR) DetectText(context.Context, []byte) (string, error) { return s.text, s.err }

func TestImageAnalyzerPassesImageAndOCRText(t *testing.T) {
	gen := llm.NewMockGenerator(func(req llm.Request) (string, error) {
		return "  근로계약서: 시급 9,000원  ", nil
	})
	a := NewImageAnalyzer(gen, "vision-model", stubOCR{text: "시급 9,000원"}, nil)

	out := a.Analyze(context.Background(), pngBase64)
	assert.Equal(t, "근로계약서: 시급 9,000원", out)

	require.Equal(t, 1, gen.CallCount())
	req := gen.Calls[0]
	assert.Equal(t, "vision-model", req.Model)
	require.Len(t, req.Images, 1)
	assert.Equal(t, "image/png", req.Images[0].MIMEType)
	assert.Contains(t, req.Prompt, "[OCR로 추출한 원문]")
}

func TestImageAnalyzerIgnoresOCRFailure(t *testing.T) {
	gen := llm.NewMockGenerator(func(req llm.Request) (string, error) { return "ok", nil })
	a := NewImageAnalyzer(gen, "", stubOCR{err: errors.New("quota")}, nil)

	assert.Equal(t, "ok", a.Analyze(context.Background(), pngBase64))
	assert.NotContains(t, gen.Calls[0].Prompt, "OCR")
}

func TestImageAnalyzerFailureFragment(t *testing.T) {
	gen := llm.NewMockGenerator(func(req llm.Request) (string, error) { return "", errors.New("model overloaded") })
	a := NewImageAnalyzer(gen, "", nil, nil)

	out := a.Analyze(context.Background(), pngBase64)
	assert.Contains(t, out, "[이미지 분석 실패: model overloaded]")

	bad := a.Analyze(context.Background(), "")
	assert.Contains(t, bad, "이미지 분석 실패")
	assert.Equal(t, 1, gen.CallCount(), "undecodable image must not reach the model")
}
