// Package onboarding decides which payment provider setup tasks a user may
// open. The task list and its prerequisites are configuration: an embedded
// YAML catalogue, optionally replaced by a file at start up.
package onboarding

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/boddenberg/pay-selfservice-go/internal/domain"

	"gopkg.in/yaml.v3"
)

//go:embed tasks.yaml
var defaultTasks []byte

// Task statuses shown on the task list.
const (
	StatusCompleted   = "completed"
	StatusNotStarted  = "not-started"
	StatusCannotStart = "cannot-start"
)

// Task is one onboarding step.
type Task struct {
	Name     string   `yaml:"name"`
	Title    string   `yaml:"title"`
	Flag     string   `yaml:"flag"`
	Requires []string `yaml:"requires"`
}

// Catalogue holds the task lists per provider.
type Catalogue struct {
	Stripe   []Task `yaml:"stripe"`
	Worldpay []Task `yaml:"worldpay"`
}

// Progress maps task name to completion.
type Progress map[string]bool

// TaskStatus is a task with its current status.
type TaskStatus struct {
	Task
	Status string
}

// Load reads the catalogue from path, or the embedded default when path is empty.
func Load(path string) (*Catalogue, error) {
	if path == "" {
		return Parse(defaultTasks)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read onboarding tasks: %w", err)
	}
	return Parse(data)
}

// Parse decodes a catalogue. Prerequisites must name a task of the same
// provider that is declared earlier in the list.
func Parse(data []byte) (*Catalogue, error) {
	var c Catalogue
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse onboarding tasks: %w", err)
	}
	for provider, tasks := range map[string][]Task{domain.ProviderStripe: c.Stripe, domain.ProviderWorldpay: c.Worldpay} {
		seen := make(map[string]bool, len(tasks))
		for _, t := range tasks {
			if t.Name == "" {
				return nil, fmt.Errorf("%s task without a name", provider)
			}
			if seen[t.Name] {
				return nil, fmt.Errorf("%s task %q declared twice", provider, t.Name)
			}
			for _, req := range t.Requires {
				if !seen[req] {
					return nil, fmt.Errorf("%s task %q requires %q, which is not declared before it", provider, t.Name, req)
				}
			}
			seen[t.Name] = true
		}
	}
	return &c, nil
}

// Tasks returns the tasks of a provider.
func (c *Catalogue) Tasks(provider string) []Task {
	switch provider {
	case domain.ProviderStripe:
		return c.Stripe
	case domain.ProviderWorldpay:
		return c.Worldpay
	}
	return nil
}

// Find returns the named task of a provider.
func (c *Catalogue) Find(provider, name string) (Task, bool) {
	for _, t := range c.Tasks(provider) {
		if t.Name == name {
			return t, true
		}
	}
	return Task{}, false
}

// Check reports whether the task page may be opened: nil when it may,
// ErrTaskAlreadyCompleted when it is done, ErrTaskOutOfSequence when
// prerequisites are missing, ErrNotFound for an unknown task.
func (c *Catalogue) Check(provider, name string, progress Progress) error {
	t, ok := c.Find(provider, name)
	if !ok {
		return &domain.ErrNotFound{Resource: "onboarding task", ID: name}
	}
	if progress[t.Name] {
		return &domain.ErrTaskAlreadyCompleted{Task: t.Name}
	}
	var missing []string
	for _, req := range t.Requires {
		if !progress[req] {
			missing = append(missing, req)
		}
	}
	if len(missing) > 0 {
		return &domain.ErrTaskOutOfSequence{Task: t.Name, Missing: missing}
	}
	return nil
}

// Statuses lists a provider's tasks with their status for the task list page.
func (c *Catalogue) Statuses(provider string, progress Progress) []TaskStatus {
	tasks := c.Tasks(provider)
	out := make([]TaskStatus, 0, len(tasks))
	for _, t := range tasks {
		status := StatusNotStarted
		switch {
		case progress[t.Name]:
			status = StatusCompleted
		case c.Check(provider, t.Name, progress) != nil:
			status = StatusCannotStart
		}
		out = append(out, TaskStatus{Task: t, Status: status})
	}
	return out
}

// Complete reports whether every task of the provider is done.
func (c *Catalogue) Complete(provider string, progress Progress) bool {
	for _, t := range c.Tasks(provider) {
		if !progress[t.Name] {
			return false
		}
	}
	return true
}

// StripeProgress maps connector's setup flags onto Stripe tasks.
func (c *Catalogue) StripeProgress(setup domain.StripeAccountSetup) Progress {
	flags := setup.Flags()
	p := make(Progress, len(c.Stripe))
	for _, t := range c.Stripe {
		p[t.Name] = flags[t.Flag]
	}
	return p
}

// WorldpayProgress maps the derived Worldpay checklist onto Worldpay tasks.
func WorldpayProgress(tasks domain.WorldpayTasks) Progress {
	return Progress{
		domain.WorldpayTaskCredentials: tasks.Credentials,
		domain.WorldpayTaskThreeDSFlex: tasks.ThreeDSFlex,
	}
}
