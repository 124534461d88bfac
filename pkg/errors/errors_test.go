package errors_test

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turtacn/LawLens/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// New / Wrap
// ─────────────────────────────────────────────────────────────────────────────

func TestNew_FieldsAreSetCorrectly(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		code    errors.ErrorCode
		message string
	}{
		{"internal", errors.CodeInternal, "unexpected failure"},
		{"empty evidence", errors.ErrCodeEvidenceEmpty, "merged evidence is empty"},
		{"search", errors.ErrCodePrecedentSearchFailed, "search backend unreachable"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ae := errors.New(tc.code, tc.message)
			require.NotNil(t, ae)
			assert.Equal(t, tc.code, ae.Code)
			assert.Equal(t, tc.message, ae.Message)
			assert.Empty(t, ae.Detail)
			assert.Nil(t, ae.Cause)
		})
	}
}

func TestNewf_FormatsMessage(t *testing.T) {
	t.Parallel()

	ae := errors.Newf(errors.ErrCodeEvidenceTooLarge, "file %s exceeds %d bytes", "a.png", 10)
	assert.Equal(t, "file a.png exceeds 10 bytes", ae.Message)
}

func TestWrap_NilErrReturnsNil(t *testing.T) {
	t.Parallel()
	assert.Nil(t, errors.Wrap(nil, errors.CodeInternal, "ignored"))
}

func TestWrap_CauseChainIsPreserved(t *testing.T) {
	t.Parallel()

	root := stderrors.New("connection refused")
	ae := errors.Wrap(root, errors.ErrCodeDatabaseError, "query precedents")

	require.NotNil(t, ae)
	assert.Same(t, root, ae.Unwrap())
	assert.True(t, stderrors.Is(ae, root))
}

func TestWrap_PreservesOriginalCodeWhenCodeUnknown(t *testing.T) {
	t.Parallel()

	inner := errors.New(errors.ErrCodeOCRFailed, "vision quota exceeded")
	outer := errors.Wrap(inner, errors.CodeUnknown, "extract image text")
	assert.Equal(t, errors.ErrCodeOCRFailed, outer.Code)
}

func TestWrap_OverridesCodeWhenExplicit(t *testing.T) {
	t.Parallel()

	inner := errors.New(errors.ErrCodeOCRFailed, "vision quota exceeded")
	outer := errors.Wrap(inner, errors.ErrCodeExternalService, "extract image text")
	assert.Equal(t, errors.ErrCodeExternalService, outer.Code)
	assert.True(t, errors.IsCode(outer, errors.ErrCodeOCRFailed))
}

// ─────────────────────────────────────────────────────────────────────────────
// Error()
// ─────────────────────────────────────────────────────────────────────────────

func TestError_Format(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "[PRC_001] search failed", errors.New(errors.ErrCodePrecedentSearchFailed, "search failed").Error())
	assert.Equal(t, "[PRC_001] search failed: k=10",
		errors.New(errors.ErrCodePrecedentSearchFailed, "search failed").WithDetail("k=10").Error())

	wrapped := errors.Wrap(stderrors.New("timeout"), errors.ErrCodePrecedentSearchFailed, "search failed")
	assert.Equal(t, "[PRC_001] search failed: timeout", wrapped.Error())
}

func TestWithDetail_DoesNotMutateOriginal(t *testing.T) {
	t.Parallel()

	orig := errors.NotFound("diagnosis")
	withDetail := orig.WithDetail("id=42")
	assert.Empty(t, orig.Detail)
	assert.Equal(t, "id=42", withDetail.Detail)
}

func TestFluent_NilReceiverReturnsNil(t *testing.T) {
	t.Parallel()

	var ae *errors.AppError
	assert.Nil(t, ae.WithDetail("x"))
	assert.Nil(t, ae.WithCause(stderrors.New("x")))
}

// ─────────────────────────────────────────────────────────────────────────────
// Chain inspection
// ─────────────────────────────────────────────────────────────────────────────

func TestIsCode(t *testing.T) {
	t.Parallel()

	base := errors.New(errors.ErrCodeTranscriptionFailed, "whisper 500")
	chain := fmt.Errorf("audio 2: %w", base)

	assert.True(t, errors.IsCode(base, errors.ErrCodeTranscriptionFailed))
	assert.True(t, errors.IsCode(chain, errors.ErrCodeTranscriptionFailed))
	assert.False(t, errors.IsCode(chain, errors.ErrCodeOCRFailed))
	assert.False(t, errors.IsCode(nil, errors.ErrCodeOCRFailed))
	assert.False(t, errors.IsCode(stderrors.New("plain"), errors.ErrCodeOCRFailed))
}

func TestIsNotFound(t *testing.T) {
	t.Parallel()

	assert.True(t, errors.IsNotFound(errors.NotFound("x")))
	assert.True(t, errors.IsNotFound(fmt.Errorf("wrap: %w", errors.New(errors.ErrCodeDiagnosisNotFound, "gone"))))
	assert.False(t, errors.IsNotFound(errors.Internal("x")))
}

func TestIsValidation(t *testing.T) {
	t.Parallel()

	assert.True(t, errors.IsValidation(errors.New(errors.ErrCodeEvidenceEmpty, "empty")))
	assert.True(t, errors.IsValidation(errors.InvalidParam("bad mode")))
	assert.False(t, errors.IsValidation(errors.New(errors.ErrCodeOCRFailed, "x")))
}

func TestGetCode(t *testing.T) {
	t.Parallel()

	assert.Equal(t, errors.CodeOK, errors.GetCode(nil))
	assert.Equal(t, errors.CodeUnknown, errors.GetCode(stderrors.New("plain")))
	assert.Equal(t, errors.ErrCodeCacheError,
		errors.GetCode(fmt.Errorf("outer: %w", errors.New(errors.ErrCodeCacheError, "redis down"))))
}

func TestAs_ExtractsAppError(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("ctx: %w", errors.New(errors.ErrCodeGenerationFailed, "gemini"))
	var ae *errors.AppError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, errors.ErrCodeGenerationFailed, ae.Code)
}
