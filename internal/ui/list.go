package ui

import (
	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/botanica/internal/models"
)

var (
	_ list.Item = jobItem{}
)

// jobItem wraps [models.Subcategory] to implement [list.Item].
type jobItem struct {
	job models.Subcategory
}

func (i jobItem) FilterValue() string { return i.job.Name }
func (i jobItem) Title() string       { return i.job.Name }
func (i jobItem) Description() string {
	desc := i.job.ShortDescription
	if !i.job.IsActive {
		if desc == "" {
			return "inactive"
		}
		desc = "inactive • " + desc
	}
	return desc
}

func newJobList() list.Model {
	l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Jobs"
	l.SetShowHelp(false)
	l.DisableQuitKeybindings()
	l.SetStatusBarItemName("job", "jobs")
	return l
}

func jobItems(jobs []models.Subcategory) []list.Item {
	items := make([]list.Item, len(jobs))
	for i, job := range jobs {
		items[i] = jobItem{job: job}
	}
	return items
}
