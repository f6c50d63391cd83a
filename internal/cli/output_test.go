package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

func testOutput(t *testing.T, jsonMode bool) (*Output, *bytes.Buffer) {
	t.Helper()
	cmd := &cobra.Command{}
	cmd.Flags().Bool("json", jsonMode, "")

	var buf bytes.Buffer
	cmd.SetOut(&buf)

	return NewOutput(cmd), &buf
}

func TestOutputJSONMode(t *testing.T) {
	out, buf := testOutput(t, true)
	if !out.IsJSON() {
		t.Fatal("expected JSON mode")
	}
	if err := out.JSON(map[string]int{"count": 3}); err != nil {
		t.Fatalf("JSON: %v", err)
	}

	var decoded map[string]int
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded["count"] != 3 {
		t.Errorf("decoded = %v", decoded)
	}
}

func TestColorsDisabledOutsideTerminal(t *testing.T) {
	out, buf := testOutput(t, false)

	out.Success("done")
	if strings.Contains(buf.String(), "\033[") {
		t.Errorf("non-terminal output should carry no ANSI codes: %q", buf.String())
	}
	if !strings.Contains(buf.String(), "done") {
		t.Errorf("message missing: %q", buf.String())
	}
}

func TestFormatPnLSign(t *testing.T) {
	out, _ := testOutput(t, false)

	if got := out.FormatPnL(125.0); !strings.HasPrefix(got, "+") {
		t.Errorf("positive P&L should carry a plus sign: %q", got)
	}
	if got := out.FormatPnL(-45.0); !strings.HasPrefix(got, "-") {
		t.Errorf("negative P&L = %q", got)
	}
}

func TestTableAlignsColumns(t *testing.T) {
	out, buf := testOutput(t, false)

	table := NewTable(out, "INSTRUMENT", "P&L")
	table.AddRow("EUR/USD", "+125.00")
	table.AddRow("XAU/USD", "-45.00")
	table.Render()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	// Header, separator, two rows.
	if len(lines) != 4 {
		t.Fatalf("rendered %d lines: %q", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[0], "INSTRUMENT") {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.Contains(lines[2], "EUR/USD") || !strings.Contains(lines[3], "XAU/USD") {
		t.Errorf("rows = %q", lines[2:])
	}
}

func TestStripANSI(t *testing.T) {
	colored := ColorGreen + "win" + ColorReset
	if got := stripANSI(colored); got != "win" {
		t.Errorf("stripANSI = %q", got)
	}
}
