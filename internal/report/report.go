// Package report turns a reconciliation result into the structured document
// consumed by reviewers and the narrative step. Assembly adds no judgement;
// it only arranges, counts and identifies.
package report

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"

	"github.com/google/uuid"

	"github.com/spigell/pf-reconciler/internal/classify"
	"github.com/spigell/pf-reconciler/internal/employment"
	"github.com/spigell/pf-reconciler/internal/reconcile"
)

// namespace scopes report IDs so identical reports share an ID.
var namespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/spigell/pf-reconciler/report"))

// Status is the employer-level verification verdict.
type Status string

const (
	StatusVerified          Status = "VERIFIED"
	StatusPartiallyVerified Status = "PARTIALLY_VERIFIED"
	StatusNotVerified       Status = "NOT_VERIFIED"
)

const (
	verifiedPercentage  = 80
	partiallyPercentage = 50
)

// Record is the reported view of one input record.
type Record struct {
	Index              int               `json:"index"`
	ID                 string            `json:"id,omitempty"`
	Source             employment.Source `json:"source"`
	Employer           string            `json:"employer"`
	EmployerNormalized string            `json:"employer_normalized,omitempty"`
	Start              employment.Date   `json:"start"`
	End                employment.End    `json:"end"`
	JobTitle           string            `json:"job_title,omitempty"`
	EstablishmentID    string            `json:"establishment_id,omitempty"`
	AccountStatus      string            `json:"account_status,omitempty"`
	Metadata           map[string]any    `json:"metadata,omitempty"`
}

// Item is one classified finding. Matches carry both records; unmatched
// findings carry one.
type Item struct {
	CV             *Record                 `json:"cv,omitempty"`
	PF             *Record                 `json:"pf,omitempty"`
	Classification classify.Classification `json:"classification"`
}

// Summary holds the aggregate counters.
type Summary struct {
	Labels        map[classify.Label]int `json:"labels"`
	Pairs         int                    `json:"pairs"`
	UnmatchedCV   int                    `json:"unmatched_cv"`
	UnmatchedPF   int                    `json:"unmatched_pf"`
	Anomalies     int                    `json:"anomalies"`
	CoverageRatio float64                `json:"coverage_ratio"`

	CVEmployers            int     `json:"cv_employers"`
	PFEmployers            int     `json:"pf_employers"`
	VerifiedEmployers      int     `json:"verified_employers"`
	VerificationPercentage float64 `json:"verification_percentage"`
	Status                 Status  `json:"status"`
}

// Contributions totals the decoded PF payloads.
type Contributions struct {
	Accounts int     `json:"accounts"`
	Employee float64 `json:"employee"`
	Employer float64 `json:"employer"`
	Pension  float64 `json:"pension"`
	Total    float64 `json:"total"`
	// Undecodable lists PF record indexes whose payload could not be read.
	Undecodable []int `json:"undecodable,omitempty"`
}

// Report is the assembled document. Its sections keep the result's order.
type Report struct {
	ID            string             `json:"id"`
	Summary       Summary            `json:"summary"`
	Matches       []Item             `json:"matches"`
	Discrepancies []Item             `json:"discrepancies"`
	Coverage      reconcile.Coverage `json:"coverage"`
	Anomalies     []Item             `json:"anomalies"`
	Contributions Contributions      `json:"contributions"`
	Horizon       employment.Date    `json:"horizon"`
	Settings      reconcile.Config   `json:"settings"`
}

// Assemble builds the report of res. Confirmed matches go to Matches; every
// other pair, then unmatched CV and PF records in input order, go to
// Discrepancies.
func Assemble(res *reconcile.Result) (*Report, error) {
	if res == nil {
		return nil, fmt.Errorf("assemble report: nil result")
	}

	r := &Report{
		Matches:       []Item{},
		Discrepancies: []Item{},
		Anomalies:     []Item{},
		Coverage:      res.Coverage,
		Horizon:       res.Horizon,
		Settings:      res.Config,
	}

	var pfEntries []reconcile.Entry
	for _, pair := range res.Pairs {
		item := Item{
			CV:             view(pair.CV.Index, pair.CV.Normalized, pair.CV.Record),
			PF:             view(pair.PF.Index, pair.PF.Normalized, pair.PF.Record),
			Classification: pair.Classification,
		}
		if pair.Classification.Label == classify.ConfirmedMatch {
			r.Matches = append(r.Matches, item)
		} else {
			r.Discrepancies = append(r.Discrepancies, item)
		}
		pfEntries = append(pfEntries, pair.PF)
	}
	for _, u := range res.UnmatchedCV {
		r.Discrepancies = append(r.Discrepancies, Item{
			CV:             view(u.Index, u.Normalized, u.Record),
			Classification: u.Classification,
		})
	}
	for _, u := range res.UnmatchedPF {
		r.Discrepancies = append(r.Discrepancies, Item{
			PF:             view(u.Index, u.Normalized, u.Record),
			Classification: u.Classification,
		})
		pfEntries = append(pfEntries, u.Entry)
	}
	for _, a := range res.Anomalies {
		item := Item{Classification: a.Classification}
		rec := view(a.Index, "", a.Record)
		if a.Record.Source == employment.SourcePF {
			item.PF = rec
		} else {
			item.CV = rec
		}
		r.Anomalies = append(r.Anomalies, item)
	}

	r.Summary = summarize(res)
	r.Contributions = contributions(pfEntries)

	id, err := identify(r)
	if err != nil {
		return nil, err
	}
	r.ID = id

	return r, nil
}

func view(index int, normalized string, rec employment.Record) *Record {
	out := &Record{
		Index:              index,
		ID:                 rec.ID,
		Source:             rec.Source,
		Employer:           rec.EmployerRaw,
		EmployerNormalized: normalized,
		Start:              rec.Start,
		End:                rec.End,
		Metadata:           rec.Metadata,
	}

	switch rec.Source {
	case employment.SourceCV:
		if details, err := employment.DecodeCVDetails(rec.Metadata); err == nil {
			out.JobTitle = details.Title
		}
	case employment.SourcePF:
		if details, err := employment.DecodePFDetails(rec.Metadata); err == nil {
			out.EstablishmentID = details.EstablishmentID
			out.AccountStatus = details.Status
		}
	}

	return out
}

// summarize counts labels and computes the employer-level verification:
// the share of distinct CV employers backed by a confirmed or partial match.
func summarize(res *reconcile.Result) Summary {
	s := Summary{
		Labels:        make(map[classify.Label]int, len(classify.Labels)),
		Pairs:         len(res.Pairs),
		UnmatchedCV:   len(res.UnmatchedCV),
		UnmatchedPF:   len(res.UnmatchedPF),
		Anomalies:     len(res.Anomalies),
		CoverageRatio: res.Coverage.Ratio,
	}
	for _, label := range classify.Labels {
		s.Labels[label] = 0
	}

	cvEmployers := map[string]struct{}{}
	pfEmployers := map[string]struct{}{}
	verified := map[string]struct{}{}
	add := func(set map[string]struct{}, name string) {
		if name != "" {
			set[name] = struct{}{}
		}
	}

	for _, pair := range res.Pairs {
		s.Labels[pair.Classification.Label]++
		add(cvEmployers, pair.CV.Normalized)
		add(pfEmployers, pair.PF.Normalized)
		switch pair.Classification.Label {
		case classify.ConfirmedMatch, classify.PartialMatch:
			add(verified, pair.CV.Normalized)
		}
	}
	for _, u := range res.UnmatchedCV {
		s.Labels[u.Classification.Label]++
		add(cvEmployers, u.Normalized)
	}
	for _, u := range res.UnmatchedPF {
		s.Labels[u.Classification.Label]++
		add(pfEmployers, u.Normalized)
	}
	for _, a := range res.Anomalies {
		s.Labels[a.Classification.Label]++
	}

	s.CVEmployers = len(cvEmployers)
	s.PFEmployers = len(pfEmployers)
	s.VerifiedEmployers = len(verified)
	if s.CVEmployers > 0 {
		pct := float64(s.VerifiedEmployers) / float64(s.CVEmployers) * 100
		s.VerificationPercentage = math.Round(pct*100) / 100
	}

	switch {
	case s.VerificationPercentage >= verifiedPercentage:
		s.Status = StatusVerified
	case s.VerificationPercentage >= partiallyPercentage:
		s.Status = StatusPartiallyVerified
	default:
		s.Status = StatusNotVerified
	}

	return s
}

func contributions(entries []reconcile.Entry) Contributions {
	var c Contributions
	for _, entry := range entries {
		if len(entry.Record.Metadata) == 0 {
			continue
		}
		details, err := employment.DecodePFDetails(entry.Record.Metadata)
		if err != nil {
			c.Undecodable = append(c.Undecodable, entry.Index)
			continue
		}
		c.Accounts++
		c.Employee += details.EmployeeContribution
		c.Employer += details.EmployerContribution
		c.Pension += details.Pension
		c.Total += details.Total()
	}
	slices.Sort(c.Undecodable)
	return c
}

// identify derives the report ID from its content.
func identify(r *Report) (string, error) {
	body, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("encode report body: %w", err)
	}
	return uuid.NewSHA1(namespace, body).String(), nil
}
