package jobs

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/jonathanprocter/insight-atlas-server/internal/models"
	"github.com/jonathanprocter/insight-atlas-server/internal/store"
)

// RunAudioSweep deletes narration files in the audio directory that no
// guide references. Generation writes narration before the guide row is
// committed, so a crash or a discarded run can strand files on disk.
func RunAudioSweep(ctx JobContext) {
	jobId := "audio-sweep"
	sendProgress(ctx, jobId, "Sweeping narration files...", 0, false)

	referenced, err := store.New(ctx.DB()).ListAudioPaths()
	if err != nil {
		sendProgress(ctx, jobId, fmt.Sprintf("Error listing guide audio: %v", err), 1, true)
		return
	}
	keep := make(map[string]bool, len(referenced))
	for _, p := range referenced {
		abs, err := filepath.Abs(p)
		if err != nil {
			abs = p
		}
		keep[abs] = true
	}

	dir := ctx.Config().Audio.Path
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			sendProgress(ctx, jobId, "Narration directory does not exist yet.", 1, true)
			return
		}
		sendProgress(ctx, jobId, fmt.Sprintf("Error reading narration directory: %v", err), 1, true)
		return
	}

	removed := 0
	for i, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		abs, err := filepath.Abs(path)
		if err != nil {
			abs = path
		}
		if keep[abs] {
			continue
		}
		if err := os.Remove(path); err != nil {
			log.Printf("Failed to remove orphaned narration file %s: %v", path, err)
			continue
		}
		removed++
		progress := float64(i+1) / float64(len(entries))
		sendProgress(ctx, jobId, fmt.Sprintf("Removed %s", entry.Name()), progress, false)
	}

	sendProgress(ctx, jobId, fmt.Sprintf("Sweep complete. Removed %d orphaned file(s).", removed), 1, true)
}

// sendProgress broadcasts a job progress update to connected clients.
func sendProgress(ctx JobContext, jobId, message string, progress float64, done bool) {
	ctx.WsHub().BroadcastJSON(models.ProgressUpdate{
		JobID:      jobId,
		Message:    message,
		Completion: progress,
		Done:       done,
	})
}
