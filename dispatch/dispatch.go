// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

// Package dispatch splits a collection among delivery agents by postal code.
package dispatch

import (
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"

	"github.com/jcodagnone/mailgeo/record"
	"github.com/jcodagnone/mailgeo/sheet"
	"gopkg.in/yaml.v3"
)

// Agent is a distribution centre and the postal code prefixes it serves.
type Agent struct {
	Name     string   `yaml:"name"`
	Prefixes []string `yaml:"prefixes"`
}

// Config is the agents file.
type Config struct {
	Agents []Agent `yaml:"agents"`
}

// PortoAlegre is the built-in table of Porto Alegre distribution centres.
var PortoAlegre = []Agent{
	{Name: "CDA Cristal", Prefixes: []string{"908", "919"}},
	{Name: "CDA Farrapos", Prefixes: []string{"902", "910", "911", "912"}},
	{Name: "CDA Farroupilha", Prefixes: []string{"9003", "9004"}},
	{Name: "CDA Iguatemi", Prefixes: []string{"913", "914", "915"}},
	{Name: "CDA Jardim Botânico", Prefixes: []string{"9001", "9002", "906"}},
	{Name: "CDA Menino Deus", Prefixes: []string{"901"}},
	{Name: "CDA Teresópolis", Prefixes: []string{"917"}},
	{Name: "CDB Protásio Alves", Prefixes: []string{"904", "905"}},
}

// LoadAgents reads an agents file.
func LoadAgents(path string) ([]Agent, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading agents file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing agents file %s: %w", path, err)
	}

	if err := validate(cfg.Agents); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return cfg.Agents, nil
}

func validate(agents []Agent) error {
	if len(agents) == 0 {
		return fmt.Errorf("no agents defined")
	}

	owner := map[string]string{}

	for _, a := range agents {
		if a.Name == "" {
			return fmt.Errorf("agent without name")
		}

		for _, p := range a.Prefixes {
			if p == "" || strings.IndexFunc(p, func(r rune) bool { return !unicode.IsDigit(r) }) >= 0 {
				return fmt.Errorf("agent %q: invalid prefix %q", a.Name, p)
			}

			if other, ok := owner[p]; ok {
				return fmt.Errorf("prefix %s assigned to both %q and %q", p, other, a.Name)
			}

			owner[p] = a.Name
		}
	}

	return nil
}

// Group holds the records assigned to one agent.
type Group struct {
	Agent   string
	Records []record.Record
}

// Plan is the result of Assign.
type Plan struct {
	Failed     []record.Record // records that never got a postal code
	Groups     []Group         // in agent order, only agents with records
	Unassigned []record.Record // resolved records no agent serves
}

// Assign groups records by the agent whose prefix is the longest match of
// the record postal code. Input order is kept inside each group.
func Assign(records []record.Record, agents []Agent) Plan {
	var plan Plan

	byAgent := make([][]record.Record, len(agents))

	for _, r := range records {
		if r.IsFailed() {
			plan.Failed = append(plan.Failed, r)

			continue
		}

		idx := match(digits(r.PostalCode), agents)
		if idx < 0 {
			plan.Unassigned = append(plan.Unassigned, r)

			continue
		}

		byAgent[idx] = append(byAgent[idx], r)
	}

	for i, recs := range byAgent {
		if len(recs) > 0 {
			plan.Groups = append(plan.Groups, Group{Agent: agents[i].Name, Records: recs})
		}
	}

	return plan
}

func match(code string, agents []Agent) int {
	best, bestLen := -1, 0

	for i, a := range agents {
		for _, p := range a.Prefixes {
			if len(p) > bestLen && strings.HasPrefix(code, p) {
				best, bestLen = i, len(p)
			}
		}
	}

	return best
}

func digits(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}

		return -1
	}, s)
}

// Records flattens the plan in delivery order: failed records first, then
// each agent group, then the unassigned ones.
func (p Plan) Records() []record.Record {
	ret := append([]record.Record(nil), p.Failed...)
	for _, g := range p.Groups {
		ret = append(ret, g.Records...)
	}

	return append(ret, p.Unassigned...)
}

// Write prints the plan.
func (p Plan) Write(w io.Writer) error {
	section := func(title string, recs []record.Record) error {
		if _, err := fmt.Fprintf(w, "%s (%d)\n", title, len(recs)); err != nil {
			return err
		}

		for _, r := range recs {
			line := r.PostalCode + "\t" + r.Name + "\t" + r.FormattedAddress
			if r.IsFailed() {
				line = r.Name + "\t" + r.FailureReason
			}

			if _, err := fmt.Fprintf(w, "  %s\n", line); err != nil {
				return err
			}
		}

		return nil
	}

	if len(p.Failed) > 0 {
		if err := section("Failed", p.Failed); err != nil {
			return err
		}
	}

	for _, g := range p.Groups {
		if err := section(g.Agent, g.Records); err != nil {
			return err
		}
	}

	if len(p.Unassigned) > 0 {
		return section("Unassigned", p.Unassigned)
	}

	return nil
}

// Sheets lays the plan out as one sheet per section, in delivery order.
func (p Plan) Sheets() []sheet.Sheet {
	var ret []sheet.Sheet

	add := func(name string, recs []record.Record) {
		rows := make([][]string, len(recs))
		for i, r := range recs {
			rows[i] = r.Fields()
		}

		ret = append(ret, sheet.Sheet{Name: name, Rows: rows})
	}

	if len(p.Failed) > 0 {
		add("Failed", p.Failed)
	}

	for _, g := range p.Groups {
		add(g.Agent, g.Records)
	}

	if len(p.Unassigned) > 0 {
		add("Unassigned", p.Unassigned)
	}

	return ret
}
