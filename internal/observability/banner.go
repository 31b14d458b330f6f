package observability

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"golang.org/x/term"
)

const (
	colorReset    = "\033[0m"
	colorBold     = "\033[1m"
	colorPurple   = "\033[35m"
	colorNeonCyan = "\033[96m"
	colorNeonMag  = "\033[95m"
	colorGreen    = "\033[92m"
	colorYellow   = "\033[93m"
	colorRed      = "\033[91m"
)

var radarFrames = []string{"◜", "◝", "◞", "◟"}

// termMu synchronizes ALL terminal output so that the cursor
// save/restore in PrintLiveStatus can never be interrupted by a log write.
var termMu sync.Mutex

// TermWidth returns the width of stdout, or 80 when it is not a terminal.
func TermWidth() int {
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 {
		return 80
	}
	return w
}

func clamp(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

type termWriter struct{}

func (tw termWriter) Write(p []byte) (n int, err error) {
	termMu.Lock()
	defer termMu.Unlock()
	return os.Stderr.Write(p)
}

// NewTermWriter returns an io.Writer suitable for log.SetOutput().
// It serialises writes with PrintLiveStatus via termMu.
func NewTermWriter() io.Writer {
	return termWriter{}
}

func PrintBanner(w io.Writer) {
	banner := `
 _____ ____ _____  _  _____ _____      _    ___
| ____/ ___|_   _|/ \|_   _| ____|    / \  |_ _|
|  _| \___ \ | | / _ \ | | |  _|     / _ \  | |
| |___ ___) || |/ ___ \| | | |___   / ___ \ | |
|_____|____/ |_/_/   \_\_| |_____| /_/   \_\___|

   >> UK ESTATE AGENCY - MULTI-AGENT SYSTEM <<
`
	width := TermWidth()
	for _, l := range strings.Split(banner, "\n") {
		padding := clamp((width-len(l))/2, 0, width)
		fmt.Fprintf(w, "%s%s%s\n", strings.Repeat(" ", padding), colorNeonCyan+l, colorReset)
	}
	fmt.Fprintf(w, "%s  Agents:%s 🎯 Orchestrator  🔍 Scout  🧠 Intelligence  ✍️  Content  ✅ Compliance\n\n", colorBold, colorReset)
}

// CheckResult is one line of the startup checklist.
type CheckResult struct {
	Label string
	OK    bool
	Note  string
}

// PrintChecks renders the startup checklist and reports whether all passed.
func PrintChecks(w io.Writer, checks []CheckResult) bool {
	all := true
	for _, c := range checks {
		mark, color := "[  OK  ]", colorGreen
		if !c.OK {
			mark, color = "[ WARN ]", colorYellow
			all = false
		}
		line := fmt.Sprintf("%s%s%s %s", color, mark, colorReset, c.Label)
		if c.Note != "" {
			line += " - " + c.Note
		}
		fmt.Fprintln(w, line)
	}
	return all
}

// MaskKey shows only the last four characters of a secret.
func MaskKey(key string) string {
	if len(key) <= 4 {
		return strings.Repeat("*", len(key))
	}
	return strings.Repeat("*", 20) + key[len(key)-4:]
}

func InitializeTerminal() {
	// Lines 1-9 banner, 10 status, 12+ scrolling logs.
	fmt.Print("\033[2J\033[H")
	fmt.Print("\033[12;r")
	fmt.Print("\033[12;1H")
}

func CleanupTerminal() {
	fmt.Print("\033[r\033[2J\033[H")
}

// Dashboard renders a one-line live status at a fixed terminal row.
type Dashboard struct {
	status   *Status
	radarIdx int
}

func NewDashboard(status *Status) *Dashboard {
	return &Dashboard{status: status}
}

func (d *Dashboard) PrintLiveStatus() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	memMB := float64(m.Alloc) / 1024 / 1024

	snap := d.status.Snapshot()

	pulseIcon, pulseText, pulseColor := "🔴", "OFFLINE", colorRed
	delta := time.Since(snap.LastHeartbeat)
	if delta < 40*time.Second {
		pulseIcon, pulseText, pulseColor = "🟢", "HEALTHY", colorNeonCyan
	} else if delta < 90*time.Second {
		pulseIcon, pulseText, pulseColor = "🟡", "LAGGING", colorPurple
	}

	icon, roleColor := "💤", colorReset
	switch snap.Role {
	case RolePlanning:
		icon, roleColor = "🎯", colorNeonCyan
	case RoleAwaiting:
		icon, roleColor = "👤", colorYellow
	case RoleExecuting:
		icon, roleColor = "⚙️", colorNeonMag
	}

	radar := " "
	if snap.Role != RoleIdle {
		radar = radarFrames[d.radarIdx]
		d.radarIdx = (d.radarIdx + 1) % len(radarFrames)
	}

	task := snap.ActiveTask
	if task == "" {
		task = "Waiting..."
	}
	if len(task) > 25 {
		task = task[:22] + "..."
	}

	totalMB := float64(m.Sys) / 1024 / 1024
	barWidth := 20
	filled := clamp(int(memMB/totalMB*float64(barWidth)), 0, barWidth)
	bar := strings.Repeat("█", filled) + strings.Repeat("▒", barWidth-filled)

	statusStr := fmt.Sprintf(
		"\033[s\033[10;1H\033[K[%s] %s%s %-8s%s | %s%s %-17s%s [%s] %s%s%s [%s] [%s %.1fMB]\033[u",
		snap.LastHeartbeat.Format("15:04:05"),
		pulseColor, pulseIcon, pulseText, colorReset,
		roleColor, icon, snap.Role, colorReset,
		task,
		colorPurple, radar, colorReset,
		snap.Uptime,
		bar, memMB,
	)

	termMu.Lock()
	fmt.Print(statusStr)
	termMu.Unlock()
}
