package blob

import (
	"strings"
	"testing"
)

func TestRandomObjectPath(t *testing.T) {
	cases := []struct {
		name      string
		directory string
		filename  string
		prefix    string
		suffix    string
	}{
		{name: "with_directory_and_ext", directory: "raw", filename: "movie.MP4", prefix: "raw/", suffix: ".mp4"},
		{name: "no_directory", directory: "", filename: "clip.webm", prefix: "", suffix: ".webm"},
		{name: "trims_slashes", directory: "/covers/", filename: "art.png", prefix: "covers/", suffix: ".png"},
		{name: "no_extension", directory: "misc", filename: "README", prefix: "misc/", suffix: ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := randomObjectPath(tc.directory, tc.filename)
			if err != nil {
				t.Fatalf("randomObjectPath: %v", err)
			}
			if !strings.HasPrefix(got, tc.prefix) {
				t.Fatalf("path %q missing prefix %q", got, tc.prefix)
			}
			if tc.suffix != "" && !strings.HasSuffix(got, tc.suffix) {
				t.Fatalf("path %q missing suffix %q", got, tc.suffix)
			}
			random := strings.TrimSuffix(strings.TrimPrefix(got, tc.prefix), tc.suffix)
			if len(random) != 32 {
				t.Fatalf("random component %q should be 32 hex chars", random)
			}
		})
	}
}

func TestRandomObjectPathUnique(t *testing.T) {
	first, err := randomObjectPath("raw", "a.mp4")
	if err != nil {
		t.Fatalf("randomObjectPath: %v", err)
	}
	second, err := randomObjectPath("raw", "a.mp4")
	if err != nil {
		t.Fatalf("randomObjectPath: %v", err)
	}
	if first == second {
		t.Fatalf("two generated paths collided: %s", first)
	}
}

func TestParseNotification(t *testing.T) {
	body := []byte(`{
		"EventName": "s3:ObjectCreated:Put",
		"Records": [{
			"s3": {
				"bucket": {"name": "videos"},
				"object": {"key": "raw%2Fdeadbeef.mp4", "size": 1048576, "contentType": "video/mp4"}
			}
		}]
	}`)
	infos, err := ParseNotification(body)
	if err != nil {
		t.Fatalf("ParseNotification: %v", err)
	}
	if len(infos) != 1 {
		t.Fatalf("expected 1 record, got %d", len(infos))
	}
	info := infos[0]
	if info.BucketName != "videos" || info.Path != "raw/deadbeef.mp4" {
		t.Fatalf("unexpected coordinates: %+v", info)
	}
	if info.SizeInByte != 1048576 || info.Mimetype != "video/mp4" {
		t.Fatalf("unexpected object stats: %+v", info)
	}
}

func TestParseNotificationRejectsGarbage(t *testing.T) {
	if _, err := ParseNotification([]byte("not json")); err == nil {
		t.Fatal("expected decode error")
	}
	if _, err := ParseNotification([]byte(`{"Records": []}`)); err == nil {
		t.Fatal("expected empty-records error")
	}
	if _, err := ParseNotification([]byte(`{"Records": [{"s3": {"bucket": {"name": ""}, "object": {"key": "x"}}}]}`)); err == nil {
		t.Fatal("expected missing-bucket error")
	}
}
