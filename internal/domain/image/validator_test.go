package image

import (
	"testing"

	"imageset-go/internal/platform/config"
	ptesting "imageset-go/internal/platform/testing"
)

func TestValidator_Validate(t *testing.T) {
	logger := testLogger(t)
	png := ptesting.PNGBytes(t, 64, 48)

	tests := []struct {
		name   string
		limits config.LimitsConfig
		data   []byte
		mime   string
		wantOK bool
	}{
		{
			name:   "valid png within limits",
			limits: config.LimitsConfig{MaxFileSize: 1 << 20, MaxWidth: 128, MaxHeight: 128, MaxPixels: 1 << 20},
			data:   png,
			mime:   MimePNG,
			wantOK: true,
		},
		{
			name:   "empty payload",
			limits: config.LimitsConfig{},
			data:   nil,
			mime:   MimePNG,
			wantOK: false,
		},
		{
			name:   "file size limit",
			limits: config.LimitsConfig{MaxFileSize: 16},
			data:   png,
			mime:   MimePNG,
			wantOK: false,
		},
		{
			name:   "width limit",
			limits: config.LimitsConfig{MaxWidth: 32},
			data:   png,
			mime:   MimePNG,
			wantOK: false,
		},
		{
			name:   "pixel limit",
			limits: config.LimitsConfig{MaxPixels: 100},
			data:   png,
			mime:   MimePNG,
			wantOK: false,
		},
		{
			name:   "undecodable bytes",
			limits: config.LimitsConfig{},
			data:   []byte("not an image at all"),
			mime:   MimePNG,
			wantOK: false,
		},
		{
			// mismatched signatures warn but do not reject
			name:   "declared mime mismatch",
			limits: config.LimitsConfig{},
			data:   png,
			mime:   MimeJPEG,
			wantOK: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewValidator(tt.limits, logger)
			res := v.Validate(tt.data, tt.mime)
			if res.OK != tt.wantOK {
				t.Errorf("Validate() OK = %v, want %v (err: %v)", res.OK, tt.wantOK, res.Err)
			}
			if tt.wantOK && (res.Width != 64 || res.Height != 48) {
				t.Errorf("reported dimensions %dx%d, want 64x48", res.Width, res.Height)
			}
		})
	}
}
