package dispatch

import "testing"

func TestEncodePath(t *testing.T) {
	cases := []struct{ in, want string }{
		{"/My Movie (2020).mp4", "/My%20Movie%20(2020).mp4"},
		{"/a/b/c.mp4", "/a/b/c.mp4"},
		{"/中文.mp4", "/%E4%B8%AD%E6%96%87.mp4"},
		{"/has#hash.mp4", "/has%23hash.mp4"},
		{"/q?.mp4", "/q%3F.mp4"},
	}
	for _, c := range cases {
		if got := EncodePath(c.in); got != c.want {
			t.Errorf("EncodePath(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestDownloadURL_Fallback(t *testing.T) {
	got := downloadURL("https://x.test", "/My Movie (2020).mp4", "T1")
	want := "https://x.test/d/My%20Movie%20(2020).mp4?token=T1"
	if got != want {
		t.Errorf("downloadURL = %q, want %q", got, want)
	}
}

func TestDownloadURL_NoToken(t *testing.T) {
	got := downloadURL("https://x.test/", "movie.mp4", "")
	if got != "https://x.test/d/movie.mp4" {
		t.Errorf("downloadURL = %q", got)
	}
}

func TestAppendToken_ExistingQuery(t *testing.T) {
	got := appendToken("https://x.test/f?sign=abc", "T1")
	if got != "https://x.test/f?sign=abc&token=T1" {
		t.Errorf("appendToken = %q", got)
	}
}
