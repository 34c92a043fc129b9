// Command pose-report renders the trajectories recorded in a tablepose
// session as a PNG plot or an interactive HTML chart.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/banshee-data/tablepose/internal/report"
	"github.com/banshee-data/tablepose/internal/storage/sqlite"
)

func main() {
	dbPath := flag.String("db", "tablepose.db", "pose history database")
	sessionID := flag.String("session", "", "session ID (default: most recent)")
	format := flag.String("format", "", "png or html (default: from -o extension, else png)")
	output := flag.String("o", "trajectories.png", "output path ('-' for stdout)")
	entities := flag.String("entities", "", "comma-separated entity IDs to include (default: all)")
	list := flag.Bool("list", false, "list sessions and exit")
	flag.Parse()

	store, err := sqlite.Open(*dbPath)
	if err != nil {
		log.Fatalf("failed to open %s: %v", *dbPath, err)
	}
	defer store.Close()

	if *list {
		if err := listSessions(os.Stdout, store); err != nil {
			log.Fatalf("failed to list sessions: %v", err)
		}
		return
	}

	sess, err := pickSession(store, *sessionID)
	if err != nil {
		log.Fatalf("failed to find session: %v", err)
	}
	trs, err := loadTrajectories(store, sess.ID, splitList(*entities))
	if err != nil {
		log.Fatalf("failed to load trajectories: %v", err)
	}

	fmtName := outputFormat(*format, *output)
	var out io.Writer = os.Stdout
	if *output != "-" {
		f, err := os.Create(*output)
		if err != nil {
			log.Fatalf("failed to create %s: %v", *output, err)
		}
		defer f.Close()
		out = f
	}
	bw := bufio.NewWriter(out)

	table := report.Table{Width: sess.TableWidth, Height: sess.TableHeight, Units: "m"}
	opts := report.Options{Subtitle: fmt.Sprintf("session %s started %s", sess.ID, sess.StartedAt.UTC().Format("2006-01-02 15:04:05"))}
	if err := report.Render(bw, fmtName, table, trs, opts); err != nil {
		log.Fatalf("failed to render report: %v", err)
	}
	if err := bw.Flush(); err != nil {
		log.Fatalf("failed to write report: %v", err)
	}
	if *output != "-" {
		log.Printf("wrote %s report for session %s (%d entities) to %s", fmtName, sess.ID, len(trs), *output)
	}
}

// pickSession returns the named session, or the most recent one.
func pickSession(store *sqlite.Store, id string) (*sqlite.Session, error) {
	if id != "" {
		return store.GetSession(id)
	}
	sessions, err := store.ListSessions()
	if err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return nil, sqlite.ErrNotFound
	}
	return sessions[0], nil
}

func loadTrajectories(store *sqlite.Store, sessionID string, only []string) ([]report.Trajectory, error) {
	ids := only
	if len(ids) == 0 {
		var err error
		if ids, err = store.ListEntities(sessionID); err != nil {
			return nil, err
		}
	}

	trs := make([]report.Trajectory, 0, len(ids))
	for _, id := range ids {
		obs, err := store.ListTrajectory(sessionID, id)
		if err != nil {
			return nil, err
		}
		tr := report.Trajectory{EntityID: id, Samples: make([]report.Sample, 0, len(obs))}
		for _, o := range obs {
			tr.Samples = append(tr.Samples, report.Sample{Seq: o.Seq, X: o.X, Y: o.Y, Angle: o.Angle})
		}
		trs = append(trs, tr)
	}
	return trs, nil
}

func listSessions(w io.Writer, store *sqlite.Store) error {
	sessions, err := store.ListSessions()
	if err != nil {
		return err
	}
	for _, s := range sessions {
		ended := "running"
		if s.EndedAt != nil {
			ended = s.EndedAt.Sub(s.StartedAt).Round(time.Second).String()
		}
		frames := "-"
		if st, err := store.GetStats(s.ID); err == nil {
			frames = fmt.Sprint(st.Frames)
		}
		fmt.Fprintf(w, "%s  %s  %-10s frames=%s\n", s.ID, s.StartedAt.UTC().Format("2006-01-02 15:04:05"), ended, frames)
	}
	return nil
}

// outputFormat picks the explicit format, else the one implied by path.
func outputFormat(explicit, path string) string {
	if explicit != "" {
		return strings.ToLower(explicit)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		return "html"
	default:
		return "png"
	}
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
