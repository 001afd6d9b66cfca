package setup

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"
)

type (
	// InstallStep is one package operation performed by the installer: a
	// pip install of a single requirement, with optional extra arguments
	// (--force-reinstall and friends for the wheel-mismatch sequence).
	InstallStep struct {
		Name    string
		Version string
		Args    []string
		spec    string // verbatim requirement spec, when not a plain pin
		done    bool
	}
	// InstallStatus is a message struct that gets passed around at various
	// times in the installation process. All fields are optional and contain
	// the current step, whether the installer as a whole is finished, or
	// whether it's been aborted.
	InstallStatus struct {
		Step    *InstallStep
		Done    bool
		Aborted bool
	}
	// Installer runs an ordered list of package install steps against a
	// Python environment. It reports progress through a status channel and
	// an optional progress callback, and can abort and roll back (uninstall
	// completed steps in reverse order).
	Installer struct {
		Done bool

		env                 PythonEnv
		cmd                 Commander
		indexURL            string
		steps               []*InstallStep
		completed           int
		err                 error
		statusChannel       chan InstallStatus
		abortChannel        chan bool
		abortConfirmChannel chan bool
		actionLock          sync.Mutex
		progressFunction    func(InstallStatus)
	}
)

// Spec returns the pip install argument for the step.
func (s *InstallStep) Spec() string {
	if s.spec != "" {
		return s.spec
	}
	if s.Version != "" {
		return s.Name + "==" + s.Version
	}
	return s.Name
}

// NewInstaller creates an installer for the given environment and steps:
//
//	installer := NewInstaller(env, NewCommander(), steps)
//	installer.StartInstall()
//	/* some watch loop with 'installer.Status()' */
//	installer.WaitForDone()
func NewInstaller(env PythonEnv, cmd Commander, steps []*InstallStep) *Installer {
	return &Installer{
		env:                 env,
		cmd:                 cmd,
		steps:               steps,
		statusChannel:       make(chan InstallStatus, 1),
		abortChannel:        make(chan bool, 1),
		abortConfirmChannel: make(chan bool, 1),
		progressFunction:    func(status InstallStatus) {},
	}
}

// SetIndexURL points pip at an alternative package index.
func (i *Installer) SetIndexURL(url string) { i.indexURL = url }

// SetProgressFunction registers a callback invoked before each step starts.
func (i *Installer) SetProgressFunction(function func(InstallStatus)) {
	i.progressFunction = function
}

// StartInstall runs the installer in a separate goroutine and returns
// immediately. Use Status() or WaitForDone() to follow the progress.
func (i *Installer) StartInstall() { go i.install() }

func (i *Installer) install() {
	i.Done = false
	i.actionLock.Lock()
	defer i.actionLock.Unlock()
	for _, step := range i.steps {
		select {
		case <-i.abortChannel:
			i.abortConfirmChannel <- true
			return
		default:
			status := InstallStatus{Step: step}
			i.setStatus(status)
			i.progressFunction(status)
			if err := i.runStep(step); err != nil {
				// fail fast: the remaining steps are not attempted
				i.err = err
				i.Done = true
				i.setStatus(InstallStatus{Aborted: true})
				return
			}
			step.done = true
			i.completed++
			i.setStatus(InstallStatus{Step: step})
		}
	}
	i.Done = true
	i.setStatus(InstallStatus{Done: true})
}

func (i *Installer) runStep(step *InstallStep) error {
	args := i.env.pipArgs("install", step.Spec())
	args = append(args, step.Args...)
	if i.indexURL != "" {
		args = append(args, "--index-url", i.indexURL)
	}
	result, err := i.cmd.Run(context.Background(), "", i.env.Python, args...)
	if err != nil {
		return fmt.Errorf("installing %s: %w", step.Spec(), err)
	}
	if !result.OK() {
		return fmt.Errorf("installing %s: pip exited with %d: %s",
			step.Spec(), result.ExitCode, strings.TrimSpace(result.Stderr))
	}
	return nil
}

// Abort can be called to stop the installer. The installer will not stop
// immediately, but finish the currently running pip invocation first.
//
// Use Rollback() instead of Abort() if you want the completed steps
// uninstalled as well.
func (i *Installer) Abort() {
	if i.Done {
		return
	}
	i.abortChannel <- true
	<-i.abortConfirmChannel
}

// Rollback aborts the installer and uninstalls the steps completed so far,
// in reverse order.
func (i *Installer) Rollback() {
	i.Abort()
	i.actionLock.Lock()
	defer i.actionLock.Unlock()
	for p := len(i.steps) - 1; p >= 0; p-- {
		if !i.steps[p].done {
			continue
		}
		args := i.env.pipArgs("uninstall", "-y", i.steps[p].Name)
		result, err := i.cmd.Run(context.Background(), "", i.env.Python, args...)
		if err != nil || !result.OK() {
			log.Printf("Error uninstalling %s", i.steps[p].Name)
		}
		i.steps[p].done = false
		i.completed--
		i.setStatus(InstallStatus{Step: i.steps[p]})
	}
	i.Done = true
	i.setStatus(InstallStatus{Aborted: true})
}

// setStatus is a non-blocking write to the status channel. If no-one is
// listening through Status() then it will simply do nothing and return.
func (i *Installer) setStatus(status InstallStatus) {
	select {
	case i.statusChannel <- status:
	case <-time.After(1 * time.Second):
	}
}

// Status returns the current installer status.
func (i *Installer) Status() InstallStatus {
	select {
	case status := <-i.statusChannel:
		return status
	case <-time.After(1 * time.Second):
		return InstallStatus{}
	}
}

// NextStep returns the step that the installer will run next, or the one that
// is currently running.
func (i *Installer) NextStep() *InstallStep {
	for _, step := range i.steps {
		if !step.done {
			return step
		}
	}
	return nil
}

// Progress returns the ratio between completed and total steps, as a float
// between 0.0 and 1.0, inclusive.
func (i *Installer) Progress() float64 {
	if len(i.steps) == 0 {
		return 1.0
	}
	return float64(i.completed) / float64(len(i.steps))
}

// Error returns the error of the step that failed, if any.
func (i *Installer) Error() error { return i.err }

// WaitForDone returns only after the installer has finished installing (or
// aborted).
func (i *Installer) WaitForDone() {
	for {
		if status := <-i.statusChannel; status.Done || status.Aborted {
			return
		}
	}
}

// ManifestSteps builds one install step per manifest requirement.
func ManifestSteps(reqs []Requirement) []*InstallStep {
	steps := make([]*InstallStep, 0, len(reqs))
	for _, req := range reqs {
		steps = append(steps, &InstallStep{
			Name:    req.Name,
			Version: req.Version,
			spec:    req.Spec(),
		})
	}
	return steps
}

// FixSteps builds the ordered reinstall sequence. Every step reinstalls its
// exact pin without touching dependents, so that the packages compiled
// against numpy end up binary-compatible again.
func FixSteps(order []FixStep) []*InstallStep {
	steps := make([]*InstallStep, 0, len(order))
	for _, fix := range order {
		args := fix.Args
		if len(args) == 0 {
			args = []string{"--force-reinstall", "--no-deps"}
		}
		steps = append(steps, &InstallStep{Name: fix.Name, Version: fix.Version, Args: args})
	}
	return steps
}
