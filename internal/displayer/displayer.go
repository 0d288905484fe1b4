package displayer

import (
	"fmt"

	"servicebook/internal/maintenance"
	"servicebook/internal/models"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// Displayer shows one vehicle record in a TUI once the session is over.
type Displayer struct {
	app    *tview.Application
	tabs   *tview.Pages
	record models.VehicleRecord
	next   float64

	// UI elements cached for tests
	mileageText  *tview.TextView
	scheduleText *tview.TextView
	nextText     *tview.TextView
	issueTable   *tview.Table
}

func New(record models.VehicleRecord, nextMaintenance float64) *Displayer {
	return &Displayer{
		app:    tview.NewApplication(),
		tabs:   tview.NewPages(),
		record: record,
		next:   nextMaintenance,
	}
}

func (d *Displayer) Run() error {
	d.app.SetRoot(d.build(), true)
	d.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Rune() {
		case 'q', 'Q':
			d.app.Stop()
			return nil
		case '1':
			d.tabs.SwitchToPage("summary")
			return nil
		case '2':
			d.tabs.SwitchToPage("issues")
			return nil
		}
		return event
	})
	return d.app.Run()
}

func (d *Displayer) build() *tview.Flex {
	title := tview.NewTextView().SetTextAlign(tview.AlignCenter).
		SetText(fmt.Sprintf("servicebook - vehicle %s", d.record.VehicleID))
	help := tview.NewTextView().SetTextAlign(tview.AlignCenter).
		SetText("[1 - Summary] [2 - Repairs] [q - Quit]")

	header := tview.NewFlex().SetDirection(tview.FlexRow)
	header.AddItem(title, 1, 0, false)
	header.AddItem(help, 1, 0, false)

	d.tabs.AddPage("summary", d.buildSummary(), true, true)
	d.tabs.AddPage("issues", d.buildIssues(), true, false)

	layout := tview.NewFlex().SetDirection(tview.FlexRow)
	layout.AddItem(header, 2, 0, false)
	layout.AddItem(d.tabs, 0, 1, true)
	return layout
}

func (d *Displayer) buildSummary() *tview.Flex {
	d.mileageText = tview.NewTextView().SetDynamicColors(true).
		SetText(fmt.Sprintf("Mileage: %s", maintenance.FormatMileage(d.record.Mileage)))

	schedule := "[yellow]not scheduled[white]"
	if d.record.HasSchedule() {
		schedule = d.record.Scheduled.Format(maintenance.DateLayout)
	}
	d.scheduleText = tview.NewTextView().SetDynamicColors(true).
		SetText(fmt.Sprintf("Scheduled: %s", schedule))

	d.nextText = tview.NewTextView().SetDynamicColors(true).
		SetText(fmt.Sprintf("Next maintenance at: %s", maintenance.FormatMileage(d.next)))

	info := tview.NewFlex().SetDirection(tview.FlexRow)
	info.AddItem(d.mileageText, 1, 0, false)
	info.AddItem(d.scheduleText, 1, 0, false)
	info.AddItem(d.nextText, 1, 0, false)
	return info
}

func (d *Displayer) buildIssues() *tview.Table {
	tbl := tview.NewTable().SetBorders(true)
	tbl.SetCell(0, 0, tview.NewTableCell("#").SetSelectable(false).SetAlign(tview.AlignCenter))
	tbl.SetCell(0, 1, tview.NewTableCell("Repair issue").SetSelectable(false).SetAlign(tview.AlignCenter))

	for i, issue := range d.record.Issues {
		tbl.SetCell(i+1, 0, tview.NewTableCell(fmt.Sprintf("%d", i+1)))
		tbl.SetCell(i+1, 1, tview.NewTableCell(issue))
	}
	d.issueTable = tbl
	return tbl
}
