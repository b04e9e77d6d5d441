package storage

import "testing"

func TestParseLocation(t *testing.T) {
	tests := []struct {
		input      string
		wantBucket string
		wantKey    string
		wantErr    bool
	}{
		{"s3://media/input/clip.mp4", "media", "input/clip.mp4", false},
		{"media/input/clip.mp4", "media", "input/clip.mp4", false},
		{"s3://media/output/", "media", "output/", false},
		{"s3://media", "media", "", false},
		{"  loc/in/in.mp4 ", "loc", "in/in.mp4", false},
		{"", "", "", true},
		{"s3://", "", "", true},
		{"/key-only", "", "", true},
	}
	for _, tt := range tests {
		got, err := ParseLocation(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseLocation(%q): expected error, got %+v", tt.input, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseLocation(%q): unexpected error: %v", tt.input, err)
			continue
		}
		if got.Bucket != tt.wantBucket || got.Key != tt.wantKey {
			t.Errorf("ParseLocation(%q) = %+v, want bucket=%q key=%q", tt.input, got, tt.wantBucket, tt.wantKey)
		}
	}
}

func TestLocationJoin(t *testing.T) {
	prefix := MustParseLocation("loc/out/")

	if got := prefix.Join("job_metadata.json").String(); got != "loc/out/job_metadata.json" {
		t.Errorf("Join file = %q", got)
	}
	if got := prefix.Join("abc123", "output.mp4").URI(); got != "s3://loc/out/abc123/output.mp4" {
		t.Errorf("Join nested = %q", got)
	}
	if got := prefix.Join("segments/"); !got.IsPrefix() || got.Key != "out/segments/" {
		t.Errorf("Join prefix = %+v", got)
	}

	bare := MustParseLocation("s3://video-gen")
	if got := bare.Join("inv-1"); got.Key != "inv-1" {
		t.Errorf("Join on bucket root = %+v", got)
	}
}

func TestLocationStringForms(t *testing.T) {
	loc := Location{Bucket: "b", Key: "in.mp4"}
	if loc.String() != "b/in.mp4" {
		t.Errorf("String() = %q", loc.String())
	}
	if loc.URI() != "s3://b/in.mp4" {
		t.Errorf("URI() = %q", loc.URI())
	}
	if loc.Base() != "in.mp4" {
		t.Errorf("Base() = %q", loc.Base())
	}
	if (Location{Bucket: "b"}).String() != "b" {
		t.Error("bucket-only String() should omit slash")
	}
}
