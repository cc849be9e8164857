package gcp

import "testing"

func TestParseObjectStorageMode(t *testing.T) {
	cases := []struct {
		raw, host string
		want      ObjectStorageMode
		wantErr   bool
	}{
		{raw: "", host: "", want: ObjectStorageModeGCS},
		{raw: "", host: "http://fake-gcs:4443/", want: ObjectStorageModeGCSEmulator},
		{raw: "GCS", host: "http://fake-gcs:4443", want: ObjectStorageModeGCS},
		{raw: "gcs_emulator", host: "http://fake-gcs:4443", want: ObjectStorageModeGCSEmulator},
		{raw: "gcs_emulator", host: "", wantErr: true},
		{raw: "gcs_emulator", host: "fake-gcs:4443", wantErr: true},
		{raw: "local", host: "", wantErr: true},
	}
	for _, tc := range cases {
		cfg, err := ParseObjectStorageMode(tc.raw, tc.host)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("ParseObjectStorageMode(%q, %q): expected error", tc.raw, tc.host)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseObjectStorageMode(%q, %q): %v", tc.raw, tc.host, err)
		}
		if cfg.Mode != tc.want {
			t.Fatalf("ParseObjectStorageMode(%q, %q): want=%q got=%q", tc.raw, tc.host, tc.want, cfg.Mode)
		}
	}
}

func TestPublicURL(t *testing.T) {
	key := "scorm/course 1/run.zip"
	cases := []struct {
		name string
		cfg  ArchiveStoreConfig
		want string
	}{
		{
			name: "gcs default",
			cfg:  ArchiveStoreConfig{Bucket: "exports", Storage: ObjectStorageConfig{Mode: ObjectStorageModeGCS}},
			want: "https://storage.googleapis.com/exports/scorm/course 1/run.zip",
		},
		{
			name: "cdn",
			cfg:  ArchiveStoreConfig{Bucket: "exports", CDNDomain: "cdn.example.com/", Storage: ObjectStorageConfig{Mode: ObjectStorageModeGCS}},
			want: "https://cdn.example.com/scorm/course 1/run.zip",
		},
		{
			name: "public base",
			cfg:  ArchiveStoreConfig{Bucket: "exports", PublicBaseURL: "http://localhost:4443", Storage: ObjectStorageConfig{Mode: ObjectStorageModeGCS}},
			want: "http://localhost:4443/exports/scorm/course 1/run.zip",
		},
		{
			name: "emulator",
			cfg:  ArchiveStoreConfig{Bucket: "exports", Storage: ObjectStorageConfig{Mode: ObjectStorageModeGCSEmulator, EmulatorHost: "http://fake-gcs:4443"}},
			want: "http://fake-gcs:4443/storage/v1/b/exports/o/scorm%2Fcourse%201%2Frun.zip?alt=media",
		},
	}
	for _, tc := range cases {
		if got := publicURL(tc.cfg, key); got != tc.want {
			t.Fatalf("%s: want=%q got=%q", tc.name, tc.want, got)
		}
	}
}

func TestContentTypeForKey(t *testing.T) {
	if got := contentTypeForKey("a/b/export.ZIP"); got != "application/zip" {
		t.Fatalf("zip: got=%q", got)
	}
	if got := contentTypeForKey("a/b/summary.json"); got != "application/json" {
		t.Fatalf("json: got=%q", got)
	}
	if got := contentTypeForKey("noext"); got != "application/octet-stream" {
		t.Fatalf("default: got=%q", got)
	}
}
