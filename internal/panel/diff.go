package panel

import (
	"context"
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"yumeadmin/pkg/yumetypes"
)

// DiffAgainstServer fetches a fresh configuration record without committing
// it and renders a colored diff of the server's values against the local,
// possibly edited state. An empty result means no drift.
func (s *Store) DiffAgainstServer(ctx context.Context) (string, error) {
	s.mu.Lock()
	if err := s.guardInitialized(); err != nil {
		s.mu.Unlock()
		return "", err
	}
	local := s.state.Config.Clone()
	s.mu.Unlock()

	remote := local.Clone()
	if err := s.client.GetConfig(ctx, &remote); err != nil {
		s.mu.Lock()
		s.state.Error = err.Error()
		s.mu.Unlock()
		return "", err
	}
	remote.AIKey = ""

	serverText := renderConfigText(remote)
	localText := renderConfigText(local)
	if serverText == localText {
		return "", nil
	}

	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(serverText, localText, false)
	diffs = dmp.DiffCleanupSemantic(diffs)
	return dmp.DiffPrettyText(diffs), nil
}

// renderConfigText lays the comparable configuration fields out one per line,
// in a fixed order, for diffing and display. The secret key never appears.
func renderConfigText(cfg yumetypes.AdminConfig) string {
	var b strings.Builder
	fmt.Fprintf(&b, "aiBaseUrl: %s\n", cfg.AIBaseURL)
	fmt.Fprintf(&b, "aiModel: %s\n", cfg.AIModel)
	fmt.Fprintf(&b, "aiProfile: %s\n", cfg.AIProfile)
	fmt.Fprintf(&b, "aiTemperature: %g\n", cfg.AITemperature)
	fmt.Fprintf(&b, "aiMaxTokens: %d\n", cfg.AIMaxTokens)
	fmt.Fprintf(&b, "aiTimeout: %d\n", cfg.AITimeout)
	fmt.Fprintf(&b, "aiRetryCount: %d\n", cfg.AIRetryCount)
	fmt.Fprintf(&b, "aiRateLimit: %d\n", cfg.AIRateLimit)
	fmt.Fprintf(&b, "aiTopP: %g\n", cfg.AITopP)
	fmt.Fprintf(&b, "aiPromptRaw: %s\n", cfg.AIPromptRaw)
	fmt.Fprintf(&b, "character: %s\n", cfg.Character)
	return b.String()
}
