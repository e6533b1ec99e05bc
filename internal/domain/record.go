package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

// Category identifies the kind of work an ActivityRecord tracks.
type Category string

const (
	CategoryRoadshow Category = "roadshow"
	CategoryCall     Category = "call"
	CategoryReport   Category = "report"
	CategoryService  Category = "service"
	CategoryInternal Category = "internal"
)

var allCategories = []Category{
	CategoryRoadshow,
	CategoryCall,
	CategoryReport,
	CategoryService,
	CategoryInternal,
}

// Categories returns every known category in display order.
func Categories() []Category {
	out := make([]Category, len(allCategories))
	copy(out, allCategories)
	return out
}

// ParseCategory validates a raw category name.
func ParseCategory(raw string) (Category, error) {
	c := Category(strings.TrimSpace(raw))
	if !c.Valid() {
		return "", fmt.Errorf("%w: unknown category %q", ErrInvalidRecord, raw)
	}
	return c, nil
}

// Valid reports whether c is one of the closed set of categories.
func (c Category) Valid() bool {
	for _, known := range allCategories {
		if c == known {
			return true
		}
	}
	return false
}

// InteractionType tells whether a roadshow happened in person.
type InteractionType string

const (
	InteractionOnline  InteractionType = "online"
	InteractionOffline InteractionType = "offline"
)

// ReportKind separates deep-dive reports from topical notes.
type ReportKind string

const (
	ReportDeep  ReportKind = "deep"
	ReportTopic ReportKind = "topic"
)

// ServiceKind is the flavour of a high-frequency service output.
type ServiceKind string

const (
	ServiceReview     ServiceKind = "review"
	ServiceDailyChart ServiceKind = "daily_chart"
	ServiceSegment    ServiceKind = "segment"
)

// Details carries the category-specific attributes of a record. The set of
// implementations is closed: Roadshow, Call, Report, HighFrequency and
// Internal, held by value.
type Details interface {
	Category() Category
	validate() error
}

// Roadshow is a client roadshow.
type Roadshow struct {
	Institution    string
	ClientName     string
	Interaction    InteractionType
	IsRealRoadshow bool
}

// Call is a phone conference.
type Call struct {
	Topic string
}

// Report is a published research report.
type Report struct {
	Topic string
	Kind  ReportKind
}

// HighFrequency is a service-category output such as a daily chart.
type HighFrequency struct {
	Topic string
	Kind  ServiceKind
}

// Internal is an internal service activity. It is tracked but does not feed
// the composite by default.
type Internal struct {
	Topic string
}

func (Roadshow) Category() Category      { return CategoryRoadshow }
func (Call) Category() Category          { return CategoryCall }
func (Report) Category() Category        { return CategoryReport }
func (HighFrequency) Category() Category { return CategoryService }
func (Internal) Category() Category      { return CategoryInternal }

func (r Roadshow) validate() error {
	switch r.Interaction {
	case "", InteractionOnline, InteractionOffline:
	default:
		return fmt.Errorf("unknown interactionType %q", r.Interaction)
	}
	if strings.TrimSpace(r.Institution) == "" && strings.TrimSpace(r.ClientName) == "" {
		return errors.New("roadshow requires institution or clientName")
	}
	return nil
}

func (c Call) validate() error {
	if strings.TrimSpace(c.Topic) == "" {
		return errors.New("topic is required")
	}
	return nil
}

func (r Report) validate() error {
	if strings.TrimSpace(r.Topic) == "" {
		return errors.New("topic is required")
	}
	switch r.Kind {
	case ReportDeep, ReportTopic:
		return nil
	default:
		return fmt.Errorf("unknown reportType %q", r.Kind)
	}
}

func (s HighFrequency) validate() error {
	if strings.TrimSpace(s.Topic) == "" {
		return errors.New("topic is required")
	}
	switch s.Kind {
	case ServiceReview, ServiceDailyChart, ServiceSegment:
		return nil
	default:
		return fmt.Errorf("unknown serviceType %q", s.Kind)
	}
}

func (i Internal) validate() error {
	if strings.TrimSpace(i.Topic) == "" {
		return errors.New("topic is required")
	}
	return nil
}

// Record is one logged work activity. Records are immutable once stored; an
// edit is a replacement of the whole snapshot.
type Record struct {
	ID        string
	Member    string
	Date      civil.Date
	Timestamp time.Time
	Details   Details
}

// Category returns the category implied by the record's details, or "" when
// the details are missing or not one of the value variants.
func (r Record) Category() Category {
	switch r.Details.(type) {
	case Roadshow:
		return CategoryRoadshow
	case Call:
		return CategoryCall
	case Report:
		return CategoryReport
	case HighFrequency:
		return CategoryService
	case Internal:
		return CategoryInternal
	default:
		return ""
	}
}

// Validate checks the record for the fields every category needs plus its
// category-specific rules.
func (r Record) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidRecord)
	}
	if strings.TrimSpace(r.Member) == "" {
		return fmt.Errorf("%w: member is required", ErrInvalidRecord)
	}
	if !r.Date.IsValid() {
		return fmt.Errorf("%w: date is required", ErrInvalidRecord)
	}
	if r.Details == nil {
		return fmt.Errorf("%w: details are required", ErrInvalidRecord)
	}
	if r.Category() == "" {
		return fmt.Errorf("%w: unsupported details %T", ErrInvalidRecord, r.Details)
	}
	if err := r.Details.validate(); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidRecord, r.Details.Category(), err)
	}
	return nil
}

type wireRecord struct {
	ID              string          `json:"id"`
	Type            Category        `json:"type"`
	Member          string          `json:"member"`
	Date            string          `json:"date"`
	Institution     string          `json:"institution,omitempty"`
	ClientName      string          `json:"clientName,omitempty"`
	InteractionType InteractionType `json:"interactionType,omitempty"`
	IsRealRoadshow  bool            `json:"isRealRoadshow,omitempty"`
	Topic           string          `json:"topic,omitempty"`
	ReportType      ReportKind      `json:"reportType,omitempty"`
	ServiceType     ServiceKind     `json:"serviceType,omitempty"`
	Timestamp       int64           `json:"timestamp"`
}

// MarshalJSON flattens the record into the shape stored by the record store.
// Only the attributes of the record's own category are emitted.
func (r Record) MarshalJSON() ([]byte, error) {
	w := wireRecord{
		ID:     r.ID,
		Member: r.Member,
		Date:   r.Date.String(),
	}
	if !r.Timestamp.IsZero() {
		w.Timestamp = r.Timestamp.UnixMilli()
	}

	switch d := r.Details.(type) {
	case Roadshow:
		w.Type = CategoryRoadshow
		w.Institution = d.Institution
		w.ClientName = d.ClientName
		w.InteractionType = d.Interaction
		w.IsRealRoadshow = d.IsRealRoadshow
	case Call:
		w.Type = CategoryCall
		w.Topic = d.Topic
	case Report:
		w.Type = CategoryReport
		w.Topic = d.Topic
		w.ReportType = d.Kind
	case HighFrequency:
		w.Type = CategoryService
		w.Topic = d.Topic
		w.ServiceType = d.Kind
	case Internal:
		w.Type = CategoryInternal
		w.Topic = d.Topic
	default:
		return nil, fmt.Errorf("%w: record %s has no details", ErrInvalidRecord, r.ID)
	}
	return json.Marshal(w)
}

// UnmarshalJSON builds the variant selected by "type". Attributes belonging to
// other categories are discarded.
func (r *Record) UnmarshalJSON(data []byte) error {
	var w wireRecord
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	date, err := civil.ParseDate(w.Date)
	if err != nil {
		return fmt.Errorf("%w: date %q: %v", ErrInvalidRecord, w.Date, err)
	}

	var details Details
	switch w.Type {
	case CategoryRoadshow:
		details = Roadshow{
			Institution:    w.Institution,
			ClientName:     w.ClientName,
			Interaction:    w.InteractionType,
			IsRealRoadshow: w.IsRealRoadshow,
		}
	case CategoryCall:
		details = Call{Topic: w.Topic}
	case CategoryReport:
		details = Report{Topic: w.Topic, Kind: w.ReportType}
	case CategoryService:
		details = HighFrequency{Topic: w.Topic, Kind: w.ServiceType}
	case CategoryInternal:
		details = Internal{Topic: w.Topic}
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidRecord, w.Type)
	}

	*r = Record{
		ID:      w.ID,
		Member:  w.Member,
		Date:    date,
		Details: details,
	}
	if w.Timestamp != 0 {
		r.Timestamp = time.UnixMilli(w.Timestamp).UTC()
	}
	return nil
}

// RankEntry is one row of a leaderboard. Rank values are entered by hand and
// may repeat.
type RankEntry struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Rank  int     `json:"rank"`
	Share float64 `json:"share"`
}
