package status

import "time"

// Layouts used for the split date and time columns of the remote sheet.
const (
	DateLayout = "02.01.2006"
	TimeLayout = "15:04:05"
)

// Header is the remote worksheet header row, in column order.
var Header = []string{"Дата", "Артист", "Статус", "Время"}

// Record is a recognized status captured from one message.
// Records are values; nothing in the application updates them after creation.
type Record struct {
	SenderID       int64
	DisplayName    string
	Status         string
	Timestamp      time.Time
	SourceUsername string
}

// NewRecord builds a record stamped with now converted to loc.
func NewRecord(sender Sender, displayName, status string, now time.Time, loc *time.Location) Record {
	return Record{
		SenderID:       sender.ID,
		DisplayName:    displayName,
		Status:         status,
		Timestamp:      now.In(loc),
		SourceUsername: sender.Username,
	}
}

// Date formats the record day as DD.MM.YYYY in the record's timezone.
func (r Record) Date() string {
	return r.Timestamp.Format(DateLayout)
}

// Time formats the record time of day as HH:MM:SS in the record's timezone.
func (r Record) Time() string {
	return r.Timestamp.Format(TimeLayout)
}

// Row returns the remote sheet row: date, display name, status, time.
func (r Record) Row() []string {
	return []string{r.Date(), r.DisplayName, r.Status, r.Time()}
}
