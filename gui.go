package setup

import (
	"github.com/gotk3/gotk3/glib"
	"github.com/gotk3/gotk3/gtk"
	"github.com/gotk3/gotk3/pango"
)

// RunGuiSetup shows a small GTK window with a progress bar for the install
// steps and blocks until the window closes. An error is returned when GTK
// cannot be initialized (headless session, GTK3 missing); the caller falls
// back to the terminal UI in that case.
func RunGuiSetup(installer *Installer, translator *Translator) error {
	err := gtk.InitCheck(nil)
	if err != nil {
		return err
	}
	win, err := gtk.WindowNew(gtk.WINDOW_TOPLEVEL)
	if err != nil {
		return err
	}
	win.SetTitle(translator.Get("gui_title"))
	win.SetDefaultSize(540, 160)
	win.SetPosition(gtk.WIN_POS_CENTER)
	win.Connect("destroy", func() { gtk.MainQuit() })

	box, err := gtk.BoxNew(gtk.ORIENTATION_VERTICAL, 8)
	if err != nil {
		return err
	}
	box.SetMarginTop(12)
	box.SetMarginBottom(12)
	box.SetMarginStart(12)
	box.SetMarginEnd(12)

	header, err := gtk.LabelNew(translator.Get("gui_header"))
	if err != nil {
		return err
	}
	stepLabel, err := gtk.LabelNew("")
	if err != nil {
		return err
	}
	stepLabel.SetEllipsize(pango.ELLIPSIZE_END)
	progressBar, err := gtk.ProgressBarNew()
	if err != nil {
		return err
	}
	progressBar.SetShowText(true)
	cancelButton, err := gtk.ButtonNewWithLabel(translator.Get("gui_cancel"))
	if err != nil {
		return err
	}
	cancelButton.Connect("clicked", func() {
		if installer.Done {
			gtk.MainQuit()
		} else {
			cancelButton.SetSensitive(false)
			go installer.Rollback()
		}
	})

	box.PackStart(header, false, false, 0)
	box.PackStart(stepLabel, false, false, 0)
	box.PackStart(progressBar, false, false, 0)
	box.PackStart(cancelButton, false, false, 0)
	win.Add(box)
	win.ShowAll()

	installer.StartInstall()
	glib.TimeoutAdd(200, func() bool {
		progressBar.SetFraction(installer.Progress())
		if step := installer.NextStep(); step != nil {
			stepLabel.SetText(step.Spec())
		}
		if !installer.Done {
			return true
		}
		if installer.Error() != nil {
			stepLabel.SetText(translator.Get("gui_failed"))
		} else {
			progressBar.SetFraction(1.0)
			stepLabel.SetText(translator.Get("gui_done"))
		}
		cancelButton.SetLabel(translator.Get("gui_close"))
		cancelButton.SetSensitive(true)
		return false
	})

	gtk.Main()
	return nil
}
