package boot

import (
	"boxoffice/src/db"
	"boxoffice/src/inventory"
	"boxoffice/src/lib"
	"boxoffice/src/lib/mailer"
	"boxoffice/src/models"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/tidwall/gjson"
	"gorm.io/gorm"
)

func InitDb() *gorm.DB {
	db := db.GetDb()

	err := db.AutoMigrate(
		&models.Event{},
		&models.TicketType{},
		&models.TicketRelease{},
		&models.TicketSale{},
		&models.JobTask{},
	)
	if err != nil {
		log.Fatalf("error migration: %s", err.Error())
	}

	return db
}

func InitScheduler() {
	sched, err := lib.GetScheduler()
	if err != nil {
		log.Println("An error has occurred. Check logs for info")
		return
	}
	go RecoverQueuedJobs()
	go UpdateExpiredJobs()
	sched.Start()
}

func StopScheduler() {
	sched, err := lib.GetScheduler()
	if err != nil {
		log.Println("Error retrieving Scheduler. Check logs for info")
		return
	}
	if err := sched.Shutdown(); err != nil {
		log.Println("An error has occurred while stopping Scheduler. Check logs for info")
	}
}

// InitBroker wires the broker-side consumers. The mailer consumer turns
// every completed sale into a confirmation email for the buyer.
func InitBroker() {
	lib.KafkaConsume("boxoffice-mailer", "ticket-sales", func(value string) {
		email := gjson.Get(value, "buyer_email").String()
		if email == "" {
			return
		}
		name := gjson.Get(value, "buyer_name").String()
		reference := gjson.Get(value, "reference").String()
		qty := gjson.Get(value, "qty").Int()
		total := gjson.Get(value, "total").String()
		currency := gjson.Get(value, "currency").String()
		if err := mailer.NewMailerMessage(&mailer.SendMailInput{
			From:     os.Getenv("SMTP_FROM"),
			FromName: "noreply",
			Subject:  "Your ticket order is confirmed",
			To:       []string{email},
			Body: fmt.Sprintf(`
			<p>Hi %s,</p>
			<p>Your order <strong>%s</strong> for %d ticket(s) is confirmed.</p>
			<p>Total charged: %s %s</p>
		`, name, reference, qty, total, currency),
			Html: true,
		}); err != nil {
			log.Printf("[mailer] Could not send confirmation for sale %s: %s\n", reference, err.Error())
		}
	})
}

// RecoverQueuedJobs re-queues completion jobs that were pending when the
// process last stopped.
func RecoverQueuedJobs() error {
	gdb := db.GetDb()
	var jobTasks []models.JobTask
	today := time.Now()
	err := gdb.
		Model(&models.JobTask{}).
		Where(&models.JobTask{Status: "pending", JobType: "OneTimeJobStartDateTime"}).
		Where("runs_at > ?", today).
		Order("runs_at asc").
		Limit(100).
		Find(&jobTasks).
		Error
	if err != nil {
		log.Printf("Error retrieving jobs: %s\n", err.Error())
		return err
	}
	log.Printf("Found %d pending jobs", len(jobTasks))
	for _, jobTask := range jobTasks {
		eventId, ok := jobTask.Payload["event_id"].(float64)
		if !ok {
			log.Printf("Skipping job [%s]: payload has no event id\n", jobTask.ID.String())
			continue
		}
		log.Printf("Queueing: %s\n", jobTask.ID.String())
		inventory.EnqueueCompletion(uint(eventId), jobTask.ID, jobTask.RunsAt)
	}
	return nil
}

// UpdateExpiredJobs completes events whose show date passed while the
// process was down, then retires the stale job records.
func UpdateExpiredJobs() {
	gdb := db.GetDb()
	var jobTasks []models.JobTask
	err := gdb.
		Model(&models.JobTask{}).
		Where(&models.JobTask{Status: "pending", JobType: "OneTimeJobStartDateTime"}).
		Where("runs_at < ?", time.Now()).
		Find(&jobTasks).
		Error
	if err != nil {
		log.Printf("Error while processing expired jobs: %s\n", err.Error())
		return
	}
	for _, jobTask := range jobTasks {
		if eventId, ok := jobTask.Payload["event_id"].(float64); ok {
			if err := inventory.CompleteEvent(uint(eventId)); err != nil {
				log.Printf("Could not complete overdue event %d: %s\n", uint(eventId), err.Error())
			}
		}
		if err := gdb.
			Model(&models.JobTask{}).
			Where("id = ?", jobTask.ID).
			Update("status", "expired").
			Error; err != nil {
			log.Printf("Error updating expired job %s: %s\n", jobTask.ID.String(), err.Error())
		}
	}
}
