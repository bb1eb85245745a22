package validate

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tdnguyen-dev/recognition-be/internal/domain"
)

func encodePNG(t *testing.T, width, height int) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	img.Set(0, 0, color.White)

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestImageValidator(t *testing.T) {
	v := NewImageValidator()

	tests := []struct {
		name      string
		payload   string
		wantErr   bool
		errString string
	}{
		{
			name:    "valid png",
			payload: encodePNG(t, 100, 100),
			wantErr: false,
		},
		{
			name:      "empty payload",
			payload:   "",
			wantErr:   true,
			errString: "empty payload",
		},
		{
			name:      "not base64",
			payload:   "%%% definitely not base64 %%%",
			wantErr:   true,
			errString: "not valid base64",
		},
		{
			name:      "base64 but not an image",
			payload:   base64.StdEncoding.EncodeToString([]byte("hello world")),
			wantErr:   true,
			errString: "not a supported image",
		},
		{
			name:      "too small",
			payload:   encodePNG(t, 10, 10),
			wantErr:   true,
			errString: "image too small",
		},
		{
			name:      "too large",
			payload:   encodePNG(t, MaxDimension+1, 100),
			wantErr:   true,
			errString: "image too large",
		},
		{
			name:      "oversized payload rejected without decoding",
			payload:   strings.Repeat("A", MaxEncodedBytes+1),
			wantErr:   true,
			errString: "payload exceeds",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.payload)

			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, domain.ErrInvalidPayload))
				assert.Contains(t, err.Error(), tt.errString)
			} else {
				require.NoError(t, err)
			}
		})
	}
}
