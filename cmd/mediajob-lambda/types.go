package main

import (
	"errors"
	"fmt"

	"github.com/fpang/bedrock-media-jobs/internal/mediajob"
	"github.com/fpang/bedrock-media-jobs/internal/storage"
)

// Event actions.
const (
	ActionAnalyze  = "analyze"
	ActionGenerate = "generate"
	ActionStatus   = "status"
)

// Event is the payload the Lambda is invoked with.
type Event struct {
	Action         string `json:"action"`
	JobID          string `json:"jobId,omitempty"`
	Input          string `json:"input,omitempty"`
	Prompt         string `json:"prompt,omitempty"`
	ReferenceImage string `json:"referenceImage,omitempty"`
	Seed           *int64 `json:"seed,omitempty"`
	Destination    string `json:"destination,omitempty"`
}

// Response summarizes a finished or recorded job.
type Response struct {
	JobID        string `json:"jobId"`
	Kind         string `json:"kind"`
	State        string `json:"state"`
	Destination  string `json:"destination,omitempty"`
	Bytes        int    `json:"bytes,omitempty"`
	Seed         *int64 `json:"seed,omitempty"`
	Invocation   string `json:"invocation,omitempty"`
	ErrorKind    string `json:"errorKind,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

func (e Event) kind() mediajob.Kind {
	if e.Action == ActionGenerate {
		return mediajob.KindGeneration
	}
	return mediajob.KindAnalysis
}

func (e Event) validate() error {
	switch e.Action {
	case ActionAnalyze:
		if e.Input == "" {
			return errors.New("analyze requires input")
		}
	case ActionGenerate:
		if e.Prompt == "" {
			return errors.New("generate requires prompt")
		}
		if e.Seed != nil && (*e.Seed < 0 || *e.Seed > mediajob.MaxSeed) {
			return fmt.Errorf("seed must be between 0 and %d", mediajob.MaxSeed)
		}
	default:
		return fmt.Errorf("unknown action %q", e.Action)
	}
	return nil
}

// destination returns the event's destination, or
// <outputPrefix>results/<jobId>/<file> when none is given.
func (e Event) destination(outputPrefix storage.Location, file string) (storage.Location, error) {
	if e.Destination == "" {
		return outputPrefix.Join("results", e.JobID, file), nil
	}
	loc, err := storage.ParseLocation(e.Destination)
	if err != nil {
		return storage.Location{}, fmt.Errorf("destination: %w", err)
	}
	if loc.IsPrefix() {
		loc = loc.Join(file)
	}
	return loc, nil
}

func responseFromRecord(rec *mediajob.JobRecord) *Response {
	return &Response{
		JobID:        rec.ID,
		Kind:         string(rec.Kind),
		State:        string(rec.State),
		Destination:  rec.Destination,
		Seed:         rec.Seed,
		Invocation:   rec.Invocation,
		ErrorKind:    rec.ErrorKind,
		ErrorMessage: rec.ErrorMessage,
	}
}
