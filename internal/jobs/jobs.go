package jobs

import (
	"log"
	"time"

	"github.com/go-co-op/gocron"
)

// StartJobs starts the background job scheduler.
func StartJobs(app JobContext) {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()

	startAudioSweepJob(s, app)

	log.Println("Starting background job scheduler...")
	s.StartAsync()
}

func startAudioSweepJob(s *gocron.Scheduler, app JobContext) {
	interval := app.Config().SweepInterval
	if interval == 0 {
		log.Println("Audio sweep interval is 0, scheduled sweep is disabled.")
		return
	}

	jobId := "audio-sweep"
	log.Printf("Scheduling job: '%s' to run every %d minutes.", jobId, interval)

	_, err := s.Every(interval).Minutes().Do(func() {
		log.Println("Scheduler is triggering job:", jobId)
		// Go through the manager so a scheduled sweep cannot collide
		// with a manually triggered one.
		err := app.JobManager().RunJob(jobId, app)
		if err != nil {
			log.Printf("Scheduled job '%s' could not start: %v", jobId, err)
		}
	})
	if err != nil {
		log.Printf("Error scheduling '%s' job: %v", jobId, err)
	}
}
