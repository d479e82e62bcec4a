package cli

import (
	"fmt"
	"strings"

	"github.com/dmitrijs2005/workledger/internal/client/models"
	"github.com/dmitrijs2005/workledger/internal/common"
	"github.com/dmitrijs2005/workledger/internal/timex"
)

const overviewWidth = 60

func formatOverview(e models.Entry) string {
	text := models.PlainText(e.Blocks)
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[:i]
	}
	if r := []rune(text); len(r) > overviewWidth {
		text = string(r[:overviewWidth-1]) + "…"
	}

	marks := ""
	if e.IsPinned {
		marks += "*"
	}
	if e.IsArchived {
		marks += "a"
	}
	return fmt.Sprintf("%s  %s %-2s %s", e.ID, e.DayKey, marks, text)
}

func formatStatus(st models.SyncStatus) string {
	var b strings.Builder

	fmt.Fprintf(&b, "State:        %s", st.State)
	if st.Phase != "" && st.Phase != models.PhaseIdle {
		fmt.Fprintf(&b, " (%s)", st.Phase)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "Mode:         %s\n", st.Mode)
	if st.SyncID != "" {
		fmt.Fprintf(&b, "Sync id:      %s\n", maskIdentity(st.SyncID))
	}
	fmt.Fprintf(&b, "Relay:        %s\n", st.ServerURL)
	if st.LastSyncAt > 0 {
		fmt.Fprintf(&b, "Last sync:    %s (seq %d)\n",
			timex.FromMillis(st.LastSyncAt).Format("2006-01-02 15:04:05"), st.LastSyncSeq)
	} else {
		b.WriteString("Last sync:    never\n")
	}
	fmt.Fprintf(&b, "Last merged:  %d\n", st.LastMerged)
	fmt.Fprintf(&b, "Pending:      %d changed, %d deleted\n", st.PendingDirty, st.PendingDeletes)
	if st.IntegrityWarns > 0 {
		fmt.Fprintf(&b, "Integrity:    %d warning(s)\n", st.IntegrityWarns)
	}
	if st.LastError != "" {
		fmt.Fprintf(&b, "Last error:   %s\n", st.LastError)
	}
	return b.String()
}

// maskIdentity keeps the prefix and the last four characters.
func maskIdentity(id string) string {
	const keep = 4
	p := len(common.IdentityPrefix)
	if len(id) <= p+keep {
		return id
	}
	return id[:p] + strings.Repeat("•", 4) + id[len(id)-keep:]
}

func formatSyncResult(res *models.SyncResult) string {
	pushed := 0
	if res.Push != nil {
		pushed = res.Push.Pushed
	}
	s := fmt.Sprintf("Synced: pushed %d, merged %d", pushed, res.Pull.TotalMerged)
	if res.Pull.Failed > 0 {
		s += fmt.Sprintf(", %d could not be decrypted", res.Pull.Failed)
	}
	if res.Pull.IntegrityWarnings > 0 {
		s += fmt.Sprintf(", %d integrity warning(s)", res.Pull.IntegrityWarnings)
	}
	return s
}

func formatImportResult(res models.ImportResult) string {
	return fmt.Sprintf("Restored %d, kept %d existing, %d invalid", res.Imported, res.Skipped, res.Invalid)
}
