package dashboard

import (
	"net/http"
	"slices"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"infraiq/platform/internal/model"
)

// projectView groups scans that belong together. It is computed on every read
// and never stored.
type projectView struct {
	Key            string         `json:"key"`
	Name           string         `json:"name"`
	ProjectID      string         `json:"project_id,omitempty"`
	Provider       string         `json:"provider,omitempty"`
	Region         string         `json:"region,omitempty"`
	Tools          []model.ToolID `json:"tools"`
	ScanCount      int            `json:"scan_count"`
	IssuesFound    int            `json:"issues_found"`
	CriticalIssues int            `json:"critical_issues"`
	LastScanAt     time.Time      `json:"last_scan_at"`
}

func (s *Server) handleProjects(w http.ResponseWriter, r *http.Request, u model.User) {
	uc, err := s.conn.ForUser(u)
	if err != nil {
		s.fail(w, r, err, "projects")
		return
	}

	var (
		scans   []model.Scan
		named   []model.Project
		g, gctx = errgroup.WithContext(r.Context())
	)
	g.Go(func() error {
		var err error
		scans, err = uc.ListScans(gctx, maxScanLimit)
		return err
	})
	g.Go(func() error {
		var err error
		named, err = uc.ListProjects(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		s.fail(w, r, err, "projects")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"projects": groupProjects(scans, named)})
}

// groupProjects buckets scans by project id, or by provider and region when
// the scan has none. Newest group first.
func groupProjects(scans []model.Scan, named []model.Project) []projectView {
	names := make(map[string]string, len(named))
	for _, p := range named {
		names[p.ID] = p.Name
	}

	byKey := make(map[string]*projectView)
	for _, sc := range scans {
		v := projectFor(sc, names)
		pv, ok := byKey[v.Key]
		if !ok {
			pv = &v
			byKey[v.Key] = pv
		}
		pv.ScanCount++
		pv.IssuesFound += sc.Summary.IssuesFound
		pv.CriticalIssues += sc.Summary.Critical
		if !slices.Contains(pv.Tools, sc.Tool) {
			pv.Tools = append(pv.Tools, sc.Tool)
		}
		if sc.CreatedAt.After(pv.LastScanAt) {
			pv.LastScanAt = sc.CreatedAt
		}
	}

	out := make([]projectView, 0, len(byKey))
	for _, pv := range byKey {
		out = append(out, *pv)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LastScanAt.Equal(out[j].LastScanAt) {
			return out[i].Key < out[j].Key
		}
		return out[i].LastScanAt.After(out[j].LastScanAt)
	})
	return out
}

func projectFor(sc model.Scan, names map[string]string) projectView {
	if sc.ProjectID != "" {
		name := names[sc.ProjectID]
		if name == "" {
			name = sc.ProjectID
		}
		return projectView{
			Key:       "project:" + sc.ProjectID,
			Name:      name,
			ProjectID: sc.ProjectID,
			Tools:     []model.ToolID{},
		}
	}
	name := sc.Provider
	if sc.Region != "" {
		name += " (" + sc.Region + ")"
	}
	return projectView{
		Key:      "env:" + sc.Provider + "/" + sc.Region,
		Name:     name,
		Provider: sc.Provider,
		Region:   sc.Region,
		Tools:    []model.ToolID{},
	}
}
