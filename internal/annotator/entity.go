package annotator

import "time"

type Availability string

const (
	AvailabilityOnline  Availability = "online"
	AvailabilityBusy    Availability = "busy"
	AvailabilityOffline Availability = "offline"
)

type Level string

const (
	LevelJunior       Level = "junior"
	LevelIntermediate Level = "intermediate"
	LevelSenior       Level = "senior"
	LevelExpert       Level = "expert"
)

// Rank orders levels; higher outranks lower.
func (l Level) Rank() int {
	switch l {
	case LevelExpert:
		return 4
	case LevelSenior:
		return 3
	case LevelIntermediate:
		return 2
	case LevelJunior:
		return 1
	default:
		return 0
	}
}

type Annotator struct {
	ID           string       `yaml:"id" json:"id"`
	Name         string       `yaml:"name" json:"name"`
	Skills       []string     `yaml:"skills" json:"skills"`
	Level        Level        `yaml:"level" json:"level"`
	Capacity     int          `yaml:"capacity" json:"capacity"`
	CurrentLoad  int          `yaml:"current_load" json:"currentLoad"`
	Efficiency   float64      `yaml:"efficiency" json:"efficiency"`
	Accuracy     float64      `yaml:"accuracy" json:"accuracy"`
	Availability Availability `yaml:"availability" json:"availability"`
	CreatedAt    time.Time    `yaml:"created_at" json:"createdAt"`
	UpdatedAt    time.Time    `yaml:"updated_at" json:"updatedAt"`
}

func (a *Annotator) HasSkill(kind string) bool {
	for _, s := range a.Skills {
		if s == kind {
			return true
		}
	}
	return false
}

// Headroom is the number of additional tasks the annotator can take.
func (a *Annotator) Headroom() int {
	return a.Capacity - a.CurrentLoad
}
