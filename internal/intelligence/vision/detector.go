// Package vision detects text fragments in screenshots with Google Cloud
// Vision.
package vision

import (
	"context"
	"encoding/base64"

	"google.golang.org/api/option"
	visionapi "google.golang.org/api/vision/v1"

	"github.com/turtacn/LawLens/internal/application/diagnosis"
	"github.com/turtacn/LawLens/internal/config"
	"github.com/turtacn/LawLens/internal/domain/evidence"
	"github.com/turtacn/LawLens/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/LawLens/pkg/errors"
)

const featureTextDetection = "TEXT_DETECTION"

var _ diagnosis.TextDetector = (*Detector)(nil)

// Detector implements diagnosis.TextDetector.
type Detector struct {
	svc    *visionapi.Service
	hints  []string
	logger logging.Logger
}

// NewDetector authenticates with a credentials file or an API key, in that
// order of preference. Extra options are appended after the credentials.
func NewDetector(ctx context.Context, cfg config.VisionConfig, log logging.Logger, opts ...option.ClientOption) (*Detector, error) {
	if log == nil {
		log = logging.NewNopLogger()
	}
	var auth []option.ClientOption
	switch {
	case cfg.CredentialsFile != "":
		auth = append(auth, option.WithCredentialsFile(cfg.CredentialsFile))
	case cfg.APIKey != "":
		auth = append(auth, option.WithAPIKey(cfg.APIKey))
	case len(opts) == 0:
		return nil, errors.New(errors.ErrCodeFeatureDisabled, "vision credentials are not configured")
	}
	svc, err := visionapi.NewService(ctx, append(auth, opts...)...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeExternalService, "failed to create vision client")
	}
	hints := cfg.LanguageHints
	if len(hints) == 0 {
		hints = []string{"ko", "en"}
	}
	return &Detector{svc: svc, hints: hints, logger: log.Named("vision")}, nil
}

// Detect returns one fragment per detected word, positioned at the top-left
// vertex of its bounding polygon.
func (d *Detector) Detect(ctx context.Context, image []byte) ([]evidence.Fragment, error) {
	if len(image) == 0 {
		return nil, errors.New(errors.ErrCodeEvidenceEmpty, "image is empty")
	}
	req := &visionapi.BatchAnnotateImagesRequest{
		Requests: []*visionapi.AnnotateImageRequest{{
			Image:        &visionapi.Image{Content: base64.StdEncoding.EncodeToString(image)},
			Features:     []*visionapi.Feature{{Type: featureTextDetection}},
			ImageContext: &visionapi.ImageContext{LanguageHints: d.hints},
		}},
	}
	resp, err := d.svc.Images.Annotate(req).Context(ctx).Do()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeOCRFailed, "vision request failed")
	}
	if len(resp.Responses) == 0 {
		return nil, nil
	}
	r := resp.Responses[0]
	if r.Error != nil && r.Error.Code != 0 {
		return nil, errors.Newf(errors.ErrCodeOCRFailed, "vision error %d: %s", r.Error.Code, r.Error.Message)
	}
	return fragments(r.TextAnnotations), nil
}

// fragments skips the first annotation, which holds the whole text block.
func fragments(annotations []*visionapi.EntityAnnotation) []evidence.Fragment {
	if len(annotations) <= 1 {
		return nil
	}
	out := make([]evidence.Fragment, 0, len(annotations)-1)
	for _, a := range annotations[1:] {
		if a == nil || a.Description == "" {
			continue
		}
		f := evidence.Fragment{Text: a.Description, Confidence: a.Confidence}
		if a.BoundingPoly != nil && len(a.BoundingPoly.Vertices) > 0 && a.BoundingPoly.Vertices[0] != nil {
			f.X = float64(a.BoundingPoly.Vertices[0].X)
			f.Y = float64(a.BoundingPoly.Vertices[0].Y)
		}
		out = append(out, f)
	}
	return out
}
