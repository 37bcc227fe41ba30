package bridge

import (
	"fmt"
	"strconv"

	"github.com/skiffbot/skiff/internal/alist"
	"github.com/skiffbot/skiff/internal/browse"
	"github.com/skiffbot/skiff/internal/markup"
	"github.com/skiffbot/skiff/internal/sysinfo"
)

// renderBrowser lays out a browser view as message text plus a button
// grid: one row per entry, a pager row, a nav row, and the radio
// banner when a selection is in progress.
func renderBrowser(v *browse.View) OutboundMessage {
	text := fmt.Sprintf("📁 %s", markup.Escape(v.Path))
	if v.Radio.Audio != "" || v.Radio.Image != "" {
		text += "\n" + radioBanner(v.Radio)
	}

	var rows [][]Button
	for i, entry := range v.Entries {
		rows = append(rows, []Button{{
			Label: entryLabel(entry),
			Data:  browse.FormatCallback(browse.ActionClick, strconv.Itoa(i)),
		}})
	}
	if len(v.Entries) == 0 {
		text += "\n(empty directory)"
	}

	if v.TotalPages > 1 {
		rows = append(rows, []Button{
			{Label: "⬅️", Data: browse.FormatCallback(browse.ActionPage, "-1")},
			{Label: fmt.Sprintf("%d/%d", v.Page+1, v.TotalPages), Data: browse.FormatCallback(browse.ActionNoop, "")},
			{Label: "➡️", Data: browse.FormatCallback(browse.ActionPage, "1")},
		})
	}

	nav := []Button{
		{Label: "⬆️ Up", Data: browse.FormatCallback(browse.ActionNav, "up")},
		{Label: "❌ Close", Data: browse.FormatCallback(browse.ActionClose, "")},
	}
	if v.Radio.Audio != "" && v.Radio.Image != "" {
		nav = append(nav, Button{Label: "📻 Start radio", Data: browse.FormatCallback(browse.ActionStartRadio, "")})
	}
	rows = append(rows, nav)

	return OutboundMessage{Text: text, Buttons: rows}
}

// renderActionMenu lays out the per-entry action menu shown after an
// entry press. Directories offer enter, files offer the stream and
// radio selections.
func renderActionMenu(entry *alist.Entry, index int) OutboundMessage {
	idx := strconv.Itoa(index)
	text := fmt.Sprintf("Selected: %s", markup.Escape(entry.Name))

	var rows [][]Button
	if entry.IsDir {
		rows = append(rows, []Button{
			{Label: "📂 Enter", Data: browse.FormatCallback(browse.ActionEnter, idx)},
		})
	} else {
		text += fmt.Sprintf(" (%s)", sysinfo.FormatBytes(uint64(entry.Size)))
		rows = append(rows,
			[]Button{
				{Label: "▶️ Stream", Data: browse.FormatCallback(browse.ActionStream, idx)},
				{Label: "⬇️ Download", Data: browse.FormatCallback(browse.ActionStream, idx+":"+downloadArg)},
			},
			[]Button{
				{Label: "🎵 Radio audio", Data: browse.FormatCallback(browse.ActionSetAudio, idx)},
				{Label: "🖼 Radio image", Data: browse.FormatCallback(browse.ActionSetImage, idx)},
			},
		)
	}
	rows = append(rows, []Button{{Label: "⬅️ Back", Data: browse.FormatCallback(browse.ActionNav, "back")}})

	return OutboundMessage{Text: text, Buttons: rows}
}

func entryLabel(entry alist.Entry) string {
	if entry.IsDir {
		return "📁 " + entry.Name
	}
	return "📄 " + entry.Name
}

func radioBanner(r browse.Radio) string {
	switch {
	case r.Audio != "" && r.Image != "":
		return fmt.Sprintf("📻 ready: %s + %s", markup.Escape(r.Audio), markup.Escape(r.Image))
	case r.Audio != "":
		return fmt.Sprintf("📻 audio: %s (pick a cover image)", markup.Escape(r.Audio))
	default:
		return fmt.Sprintf("📻 image: %s (pick an audio file)", markup.Escape(r.Image))
	}
}
