package bridge

import (
	"fmt"
	"strconv"

	"github.com/skiffbot/skiff/internal/aria2"
	"github.com/skiffbot/skiff/internal/sysinfo"
)

const welcomeText = "🛶 Skiff is listening. Pick an action below or use /help."

const helpText = `Commands:
/ls [path] - browse the file index
/stream <path> [key-name] - start streaming a file
/dl <url> - queue a download
/addkey <name> <suffix> - save a stream key
/delkey <name> - remove a stream key
/listkeys - show saved keys
/start - show the menu`

const keysHelpText = `Stream keys append to the configured push base URL.
/addkey living-room abcd-1234 saves one, /stream <path> living-room uses it.
Without a name the first saved key is used.`

const radioHelpText = `Radio mode loops a cover image over an audio file.
Open /ls, press a music file and choose "Radio audio", then a picture
and "Radio image". The start button appears once both are set.`

// formatSpeed renders an aria2 byte-per-second string human-readably.
// The daemon reports numbers as strings; garbage passes through as-is.
func formatSpeed(speed string) string {
	n, err := strconv.ParseUint(speed, 10, 64)
	if err != nil {
		return speed
	}
	return sysinfo.FormatBytes(n)
}

// taskName is the display name of a download task.
func taskName(task aria2.Task) string {
	if len(task.Files) > 0 && task.Files[0].Path != "" {
		return baseName(task.Files[0].Path)
	}
	return task.GID
}

// taskProgress renders completion as a percentage when lengths parse.
func taskProgress(task aria2.Task) string {
	total, err1 := strconv.ParseUint(task.TotalLength, 10, 64)
	done, err2 := strconv.ParseUint(task.CompletedLength, 10, 64)
	if err1 != nil || err2 != nil || total == 0 {
		return task.Status
	}
	return fmt.Sprintf("%.0f%%", float64(done)/float64(total)*100)
}

func baseName(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[i+1:]
		}
	}
	return path
}
