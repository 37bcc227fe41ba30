package bridge

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/skiffbot/skiff/internal/markup"
)

// logTailLimit bounds how much of a log file is sent to chat.
const logTailLimit = 3000

// serviceLogs returns the tail of the most recently written pm2 log.
func (c *Commands) serviceLogs() OutboundMessage {
	if c.logDir == "" {
		return OutboundMessage{Text: "No log directory configured (set tunnel.log_dir)."}
	}
	path, err := newestLog(c.logDir)
	if err != nil {
		return OutboundMessage{Text: "No logs: " + markup.Escape(err.Error())}
	}
	tail, err := tailFile(path, logTailLimit)
	if err != nil {
		return OutboundMessage{Text: "Log read failed: " + markup.Escape(err.Error())}
	}
	return OutboundMessage{Text: fmt.Sprintf("📜 %s:\n%s", markup.Escape(filepath.Base(path)), markup.Escape(tail))}
}

// newestLog picks the log file with the latest modification time.
func newestLog(dir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.log"))
	if err != nil || len(matches) == 0 {
		return "", fmt.Errorf("no log files in %s", dir)
	}
	newest := ""
	var newestMod time.Time
	for _, m := range matches {
		st, err := os.Stat(m)
		if err != nil {
			continue
		}
		if newest == "" || st.ModTime().After(newestMod) {
			newest, newestMod = m, st.ModTime()
		}
	}
	if newest == "" {
		return "", fmt.Errorf("no readable log files in %s", dir)
	}
	return newest, nil
}

// tailFile reads at most limit bytes from the end of path.
func tailFile(path string, limit int64) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return "", err
	}
	if st.Size() > limit {
		if _, err := f.Seek(-limit, io.SeekEnd); err != nil {
			return "", err
		}
	}
	b, err := io.ReadAll(f)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
