package browse

import "testing"

func TestParseCallback(t *testing.T) {
	cases := []struct {
		data   string
		action Action
		index  int
		arg    string
	}{
		{"br:clk:3", ActionClick, 3, ""},
		{"br:enter:0", ActionEnter, 0, ""},
		{"br:pg:-1", ActionPage, -1, ""},
		{"br:nav:up", ActionNav, 0, "up"},
		{"br:nav:back", ActionNav, 0, "back"},
		{"br:act:7", ActionStream, 7, ""},
		{"br:act:7:dl", ActionStream, 7, "dl"},
		{"br:set_audio:2", ActionSetAudio, 2, ""},
		{"br:set_image:4", ActionSetImage, 4, ""},
		{"br:start_radio", ActionStartRadio, 0, ""},
		{"br:noop", ActionNoop, 0, ""},
		{"br:close", ActionClose, 0, ""},
	}
	for _, c := range cases {
		cb, err := ParseCallback(c.data)
		if err != nil {
			t.Errorf("ParseCallback(%q): %v", c.data, err)
			continue
		}
		if cb.Action != c.action || cb.Index != c.index || cb.Arg != c.arg {
			t.Errorf("ParseCallback(%q) = %+v", c.data, cb)
		}
	}
}

func TestParseCallback_Rejects(t *testing.T) {
	cases := []string{
		"",
		"br",
		"xx:clk:3",
		"br:unknown",
		"br:clk",         // missing index
		"br:clk:notanum", // non-numeric index
		"br:enter:",      // empty index
		"br:act::dl",     // modifier without an index
	}
	for _, c := range cases {
		if _, err := ParseCallback(c); err == nil {
			t.Errorf("ParseCallback(%q) accepted", c)
		}
	}
}

func TestFormatCallback_RoundTrip(t *testing.T) {
	data := FormatCallback(ActionClick, "5")
	cb, err := ParseCallback(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cb.Action != ActionClick || cb.Index != 5 {
		t.Errorf("round trip = %+v", cb)
	}
	if got := FormatCallback(ActionClose, ""); got != "br:close" {
		t.Errorf("no-arg format = %q", got)
	}
}
