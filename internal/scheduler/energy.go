package scheduler

import (
	"sort"
	"time"

	"github.com/julianstephens/studyplan/internal/constants"
	"github.com/julianstephens/studyplan/internal/models"
)

// SlotEnergy averages the energy levels of every whole hour the slot touches.
// Hours without a configured level are ignored; if none are configured the
// midpoint of the scale is used.
func SlotEnergy(slot models.TimeSlot, levels map[int]float64) float64 {
	if len(levels) == 0 || slot.DurationMin <= 0 {
		return constants.DefaultEnergyLevel
	}
	s := slot.Start
	hourStart := time.Date(s.Year(), s.Month(), s.Day(), s.Hour(), 0, 0, 0, s.Location())
	span := slot.End().Sub(hourStart)
	hours := int(span / time.Hour)
	if span%time.Hour != 0 {
		hours++
	}

	var sum float64
	var n int
	for i := 0; i < hours; i++ {
		if v, ok := levels[(s.Hour()+i)%24]; ok {
			sum += v
			n++
		}
	}
	if n == 0 {
		return constants.DefaultEnergyLevel
	}
	return sum / float64(n)
}

// RankByEnergy returns a copy of slots with Energy filled in, ordered from the
// highest average energy to the lowest. Equal energies keep chronological order.
func RankByEnergy(slots []models.TimeSlot, levels map[int]float64) []models.TimeSlot {
	ranked := make([]models.TimeSlot, len(slots))
	copy(ranked, slots)
	for i := range ranked {
		ranked[i].Energy = SlotEnergy(ranked[i], levels)
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Start.Before(ranked[j].Start)
	})
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Energy > ranked[j].Energy
	})
	return ranked
}
