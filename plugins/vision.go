package plugins

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	vision "cloud.google.com/go/vision/v2/apiv1"
	visionpb "cloud.google.com/go/vision/v2/apiv1/visionpb"
	"google.golang.org/api/option"

	"legalcheck-backend/llm"
	"legalcheck-backend/logger"
)

// ErrEmptyImage is returned by DecodeImage for blank input.
var ErrEmptyImage = errors.New("image payload is empty")

const imageAnalysisPrompt = `당신은 법률 팩트체커 시스템의 '문서/이미지 판독기'입니다.
사용자가 첨부한 문서사진(근로계약서, 임금명세서, 진단서, 메신저 대화 캡처 등)을 꼼꼼히 읽어주세요.

역할 및 규칙:
1. 문서 종류 파악: 입력된 이미지가 어떤 종류의 문서인지 먼저 식별하세요 (예: 표준근로계약서, 급여명세서, 사직서, 메신저 대화 등).
2. 핵심 팩트 추출: 날짜, 금액, 기간, 계약 당사자, 특약사항, 발언 내용 등 법률 판단의 기준이 될 정보를 빠짐없이 추출하세요.
3. 위법 조항 감지: 시급이 최저임금 미만이거나 "휴게시간 무급 처리 동의"처럼 근로기준법에 위배되는 조항이 보이면 반드시 짚어주세요.
4. 객관적 요약: 감정적인 해석을 배제하고 문서에 적힌 사실만을 Markdown 텍스트로 요약하세요.`

// DecodeImage strips an optional data URL prefix, decodes base64 and sniffs
// the MIME type.
func DecodeImage(imageBase64 string) (llm.Image, error) {
	s := strings.TrimSpace(imageBase64)
	if strings.HasPrefix(s, "data:") {
		if i := strings.IndexByte(s, ','); i >= 0 {
			s = s[i+1:]
		}
	}
	if s == "" {
		return llm.Image{}, ErrEmptyImage
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		if data, err = base64.RawStdEncoding.DecodeString(s); err != nil {
			return llm.Image{}, fmt.Errorf("invalid base64 image: %w", err)
		}
	}
	mime := http.DetectContentType(data)
	if !strings.HasPrefix(mime, "image/") {
		mime = "image/jpeg"
	}
	return llm.Image{MIMEType: mime, Data: data}, nil
}

// TextDetector extracts raw text from an image.
type TextDetector interface {
	DetectText(ctx context.Context, img []byte) (string, error)
}

// ImageAnalyzer describes attached documents with a multimodal model.
type ImageAnalyzer struct {
	gen   llm.Generator
	model string
	ocr   TextDetector
	log   *logger.Logger
}

// NewImageAnalyzer creates an analyzer. ocr may be nil.
func NewImageAnalyzer(gen llm.Generator, model string, ocr TextDetector, log *logger.Logger) *ImageAnalyzer {
	if log == nil {
		log = logger.NewNop()
	}
	return &ImageAnalyzer{gen: gen, model: model, ocr: ocr, log: log}
}

// Analyze returns a markdown description of the document. It never fails:
// errors become an explicit analysis-failed fragment.
func (a *ImageAnalyzer) Analyze(ctx context.Context, imageBase64 string) string {
	img, err := DecodeImage(imageBase64)
	if err != nil {
		return analysisFailed(err)
	}

	prompt := "첨부된 이미지를 읽고 분석해주세요."
	if a.ocr != nil {
		text, err := a.ocr.DetectText(ctx, img.Data)
		if err != nil {
			a.log.Warn("ocr pre-pass failed (continuing)", "error", err)
		} else if strings.TrimSpace(text) != "" {
			prompt += "\n\n[OCR로 추출한 원문]\n" + text
		}
	}

	out, err := a.gen.Generate(ctx, llm.Request{
		Model:  a.model,
		System: imageAnalysisPrompt,
		Prompt: prompt,
		Images: []llm.Image{img},
	})
	if err != nil {
		a.log.Warn("image analysis failed", "error", err)
		return analysisFailed(err)
	}
	return strings.TrimSpace(out)
}

func analysisFailed(err error) string {
	return fmt.Sprintf("[이미지 분석 실패: %v]\n사용자가 이미지를 첨부했으나, 서버 또는 모델 오류로 이미지를 읽을 수 없습니다.", err)
}

// FormatImageAnalysis renders the analysis as a plugin-context fragment.
func FormatImageAnalysis(text string) string {
	return "[첨부 이미지 분석 결과]\n" + text
}

// CloudVisionOCR implements TextDetector with DOCUMENT_TEXT_DETECTION.
type CloudVisionOCR struct {
	client *vision.ImageAnnotatorClient
}

// NewCloudVisionOCR creates a client from GOOGLE_APPLICATION_CREDENTIALS_JSON
// or GOOGLE_APPLICATION_CREDENTIALS, falling back to ADC.
func NewCloudVisionOCR(ctx context.Context) (*CloudVisionOCR, error) {
	var opts []option.ClientOption
	if js := strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS_JSON")); js != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(js)))
	} else if path := strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")); path != "" {
		opts = append(opts, option.WithCredentialsFile(path))
	}
	client, err := vision.NewImageAnnotatorClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("vision client: %w", err)
	}
	return &CloudVisionOCR{client: client}, nil
}

func (c *CloudVisionOCR) DetectText(ctx context.Context, img []byte) (string, error) {
	if len(img) == 0 {
		return "", nil
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	resp, err := c.client.BatchAnnotateImages(ctx, &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{{
			Image:    &visionpb.Image{Content: img},
			Features: []*visionpb.Feature{{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION}},
		}},
	})
	if err != nil {
		return "", fmt.Errorf("vision BatchAnnotateImages: %w", err)
	}
	if resp == nil || len(resp.Responses) == 0 || resp.Responses[0] == nil {
		return "", nil
	}
	r0 := resp.Responses[0]
	if r0.Error != nil && r0.Error.Message != "" {
		return "", fmt.Errorf("vision annotate error: %s", r0.Error.Message)
	}
	if r0.FullTextAnnotation == nil {
		return "", nil
	}
	return strings.TrimSpace(r0.FullTextAnnotation.Text), nil
}

func (c *CloudVisionOCR) Close() error {
	return c.client.Close()
}
