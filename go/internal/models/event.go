package models

import (
	"fmt"
	"sort"
	"strings"
)

// Event is a competition category. The set of events is closed and compiled in.
type Event string

const (
	EventAnatomy           Event = "ANATOMY"
	EventChemLab           Event = "CHEM_LAB"
	EventCrimeBusters      Event = "CRIME_BUSTERS"
	EventDesignerGenes     Event = "DESIGNER_GENES"
	EventDiseaseDetectives Event = "DISEASE_DETECTIVES"
	EventFoodScience       Event = "FOOD_SCIENCE"
	EventForensics         Event = "FORENSICS"
	EventHeredity          Event = "HEREDITY"
	EventMeteorology       Event = "METEOROLOGY"
	EventProteinModeling   Event = "PROTEIN_MODELING"
	EventReachForTheStars  Event = "REACH_FOR_THE_STARS"
	EventWaterQuality      Event = "WATER_QUALITY"

	EventBridge            Event = "BRIDGE"
	EventDetectorDesign    Event = "DETECTOR_DESIGN"
	EventDigitalStructures Event = "DIGITAL_STRUCTURES"
	EventHelicopterStart   Event = "HELICOPTER_START"
	EventHelicopterFinish  Event = "HELICOPTER_FINISH"
	EventMiscellaneous     Event = "MISCELLANEOUS"
	EventVehicleDesign     Event = "VEHICLE_DESIGN"
	EventWICI              Event = "WICI"

	EventBuildABarge      Event = "BUILD_A_BARGE"
	EventChopperChallenge Event = "CHOPPER_CHALLENGE"
	EventMissionPossible  Event = "MISSION_POSSIBLE"
	EventWindPower        Event = "WIND_POWER"
	EventWrightStuff      Event = "WRIGHT_STUFF"
)

const notesTemplateName = "notes"

type eventInfo struct {
	uri         string
	label       string
	notesUpload bool
	divisions   []Division
}

var (
	divA   = []Division{DivisionA}
	divB   = []Division{DivisionB}
	divC   = []Division{DivisionC}
	divBC  = []Division{DivisionB, DivisionC}
	divABC = []Division{DivisionA, DivisionB, DivisionC}
)

var eventTable = map[Event]eventInfo{
	EventAnatomy:           {"anatomy", "Anatomy & Physiology", true, divBC},
	EventChemLab:           {"chemLab", "Chemistry Lab", true, divC},
	EventCrimeBusters:      {"crimeBusters", "Crime Busters", true, divB},
	EventDesignerGenes:     {"designerGenes", "Designer Genes", true, divC},
	EventDiseaseDetectives: {"diseaseDetectives", "Disease Detectives", true, divBC},
	EventFoodScience:       {"foodScience", "Food Science", true, divB},
	EventForensics:         {"forensics", "Forensics", true, divC},
	EventHeredity:          {"heredity", "Heredity", true, divB},
	EventMeteorology:       {"meteorology", "Meteorology", true, divB},
	EventProteinModeling:   {"proteinModeling", "Protein Modeling", true, divC},
	EventReachForTheStars:  {"reachForTheStars", "Reach for the Stars", true, divB},
	EventWaterQuality:      {"waterQuality", "Water Quality", true, divBC},

	EventBridge:            {"bridge", "Bridge", false, divBC},
	EventDetectorDesign:    {"detectorDesign", "Detector Design", false, divC},
	EventDigitalStructures: {"digitalStructures", "Digital Structures", false, divBC},
	EventHelicopterStart:   {"helicopterStart", "Helicopter (Start)", false, divBC},
	EventHelicopterFinish:  {"helicopterFinish", "Helicopter (Final Submission)", false, divBC},
	EventMiscellaneous:     {"miscellaneous", "Miscellaneous", false, divABC},
	EventVehicleDesign:     {"vehicleDesign", "Vehicle Design", false, divBC},
	EventWICI:              {"wici", "Write It/CAD It (WICI)", false, divBC},

	EventBuildABarge:      {"barge", "Build-A-Barge", false, divA},
	EventChopperChallenge: {"chopper", "Chopper Challenge", false, divA},
	EventMissionPossible:  {"missionPossible", "Mission Possible", false, divA},
	EventWindPower:        {"windPower", "Wind Power", false, divA},
	EventWrightStuff:      {"wrightStuff", "Wright Stuff", false, divA},
}

func (e Event) String() string { return string(e) }

// Valid reports whether e is in the event table.
func (e Event) Valid() bool {
	_, ok := eventTable[e]
	return ok
}

// URI is the path segment used by the intake form for this event.
func (e Event) URI() string { return eventTable[e].uri }

// Label is the display name of the event.
func (e Event) Label() string {
	if info, ok := eventTable[e]; ok {
		return info.label
	}
	return string(e)
}

// NotesUpload reports whether the event only collects a notes sheet.
func (e Event) NotesUpload() bool { return eventTable[e].notesUpload }

// TemplateName is the name shared by the form and the upload directory.
func (e Event) TemplateName() string {
	if e.NotesUpload() {
		return notesTemplateName
	}
	return e.URI()
}

// Divisions returns the divisions the event is offered in.
func (e Event) Divisions() []Division {
	return append([]Division(nil), eventTable[e].divisions...)
}

// OfferedIn reports whether the event runs in division d.
func (e Event) OfferedIn(d Division) bool {
	for _, div := range eventTable[e].divisions {
		if div == d {
			return true
		}
	}
	return false
}

// DivisionsString renders the divisions as "B or C" or "A, B, or C".
func (e Event) DivisionsString() string {
	divs := eventTable[e].divisions
	names := make([]string, len(divs))
	for i, d := range divs {
		names[i] = string(d)
	}
	if len(names) < 3 {
		return strings.Join(names, " or ")
	}
	return strings.Join(names[:len(names)-1], ", ") + ", or " + names[len(names)-1]
}

// ParseEvent converts a constant name such as "VEHICLE_DESIGN" into an Event.
func ParseEvent(s string) (Event, error) {
	e := Event(strings.TrimSpace(s))
	if !e.Valid() {
		allowed := make([]string, 0, len(eventTable))
		for ev := range eventTable {
			allowed = append(allowed, string(ev))
		}
		sort.Strings(allowed)
		return "", &EnumError{Field: "Event", Value: s, Allowed: allowed}
	}
	return e, nil
}

// EventForURI looks an event up by its form URI.
func EventForURI(uri string) (Event, error) {
	trimmed := strings.TrimSpace(uri)
	for ev, info := range eventTable {
		if info.uri == trimmed {
			return ev, nil
		}
	}
	known := make([]string, 0, len(eventTable))
	for _, info := range eventTable {
		known = append(known, info.uri)
	}
	sort.Strings(known)
	return "", &ValidationError{Problems: []string{fmt.Sprintf(
		"'%s' is not a recognized Science Olympiad event.  Must be one of %s",
		uri, strings.Join(known, ", "))}}
}

// AllEvents returns every event sorted by label.
func AllEvents() []Event {
	return sortedEvents(func(Event) bool { return true })
}

// NotesUploadEvents returns the notes-only events sorted by label.
func NotesUploadEvents() []Event {
	return sortedEvents(Event.NotesUpload)
}

func sortedEvents(keep func(Event) bool) []Event {
	var out []Event
	for ev := range eventTable {
		if keep(ev) {
			out = append(out, ev)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label() < out[j].Label() })
	return out
}
