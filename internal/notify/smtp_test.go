package notify

import (
	"strings"
	"testing"
	"time"

	cp "github.com/dropDatabas3/mailmaint/internal/controlplane"
	"github.com/dropDatabas3/mailmaint/internal/progress"
	"github.com/dropDatabas3/mailmaint/internal/sequencer"
)

func TestSummary_IncludesStepsAndRecord(t *testing.T) {
	t.Parallel()
	out := sequencer.Outcome{
		Plan:   "enter-maintenance",
		RunID:  "run-42",
		Server: "mbx01",
		Took:   90 * time.Second,
		Steps: []sequencer.StepResult{
			{Step: "drain-transport", Label: "Draining hub transport", Status: progress.StatusOK},
			{Step: "resume-cluster-node", Label: "Resuming cluster node", Status: progress.StatusWarned, Detail: "access denied"},
		},
		Record: &sequencer.MaintenanceRecord{Server: "mbx01", Policy: cp.PolicyIntrasiteOnly},
	}

	s := summary(out)
	for _, want := range []string{
		"Server:  mbx01",
		"run-42",
		"[ok] Draining hub transport",
		"[warned] Resuming cluster node — access denied",
		"Pre-maintenance activation policy: IntrasiteOnly",
	} {
		if !strings.Contains(s, want) {
			t.Fatalf("summary missing %q:\n%s", want, s)
		}
	}
	if statusWord(out) != "completed with warnings" {
		t.Fatalf("statusWord: %q", statusWord(out))
	}
}

func TestPlanFinished_NoRecipientsIsNoop(t *testing.T) {
	t.Parallel()
	n := &SMTPNotifier{Host: "smtp.invalid", Port: 25}
	if err := n.PlanFinished(sequencer.Outcome{Plan: "exit-maintenance"}); err != nil {
		t.Fatalf("no recipients should be a noop: %v", err)
	}
}
