package bridge

// Menu labels. Inbound text matching one of these routes to the menu
// action instead of the command parser.
const (
	labelBrowse    = "📁 Browse files"
	labelStatus    = "📊 Status"
	labelDownloads = "⬇️ Downloads"
	labelAdmin     = "⚙️ Admin"
	labelHelp      = "❓ Help"

	labelTunnelURL = "🌐 Tunnel URL"
	labelUsage     = "🧮 Runner usage"
	labelRestart   = "🔁 Restart services"
	labelLogs      = "📜 Service logs"
	labelStreamCfg = "📺 Stream setup"
	labelBack      = "⬅️ Back"

	labelListKeys  = "🔑 List keys"
	labelKeysHelp  = "➕ Key commands"
	labelRadioHelp = "📻 Radio mode"
)

// mainMenu is the top-level reply menu.
func mainMenu() [][]Button {
	return menuRows(
		[]string{labelBrowse, labelStatus},
		[]string{labelDownloads, labelAdmin},
		[]string{labelHelp},
	)
}

// adminMenu holds the operator-only actions.
func adminMenu() [][]Button {
	return menuRows(
		[]string{labelTunnelURL, labelUsage},
		[]string{labelRestart, labelLogs},
		[]string{labelStreamCfg, labelBack},
	)
}

// streamMenu covers stream destination configuration.
func streamMenu() [][]Button {
	return menuRows(
		[]string{labelListKeys, labelKeysHelp},
		[]string{labelRadioHelp, labelBack},
	)
}

// menuRows builds button rows whose callback data echoes the label, so
// both text replies and button presses land on the same handler.
func menuRows(rows ...[]string) [][]Button {
	out := make([][]Button, 0, len(rows))
	for _, row := range rows {
		buttons := make([]Button, 0, len(row))
		for _, label := range row {
			buttons = append(buttons, Button{Label: label, Data: "menu:" + label})
		}
		out = append(out, buttons)
	}
	return out
}

// menuLabel extracts the label from either a plain text reply or a
// menu button payload.
func menuLabel(msg InboundMessage) string {
	if msg.CallbackData != "" {
		const prefix = "menu:"
		if len(msg.CallbackData) > len(prefix) && msg.CallbackData[:len(prefix)] == prefix {
			return msg.CallbackData[len(prefix):]
		}
		return ""
	}
	return msg.Text
}
