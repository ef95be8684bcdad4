package ui

// ProjectAnswers are the replies to the new-project questionnaire.
type ProjectAnswers struct {
	Name           string
	Framework      string
	IncludeBackend bool
	Requirements   string
}

// Defaults offered by the questionnaire.
const (
	DefaultProjectName  = "Jump-Starter"
	DefaultRequirements = "make a todo app"
)

// Asker is the set of prompts the questionnaire needs. The bubbletea prompts
// satisfy it through TerminalAsker.
type Asker interface {
	Text(title, defaultVal string, validate func(string) error) (string, error)
	Select(title string, options []SelectOption) (SelectOption, error)
	YesNo(question string, defaultYes bool) (bool, error)
}

// TerminalAsker runs the interactive bubbletea prompts.
type TerminalAsker struct{}

func (TerminalAsker) Text(title, defaultVal string, validate func(string) error) (string, error) {
	return RunTextInputPrompt(title, defaultVal, validate)
}

func (TerminalAsker) Select(title string, options []SelectOption) (SelectOption, error) {
	return RunSelectPrompt(title, options)
}

func (TerminalAsker) YesNo(question string, defaultYes bool) (bool, error) {
	return RunYesNoPrompt(question, defaultYes)
}

// Questionnaire configures AskProject.
type Questionnaire struct {
	// Frameworks are the selectable frontends; the first is listed first.
	Frameworks []string
	AskBackend bool
	// ValidateName rejects project names that cannot become a directory.
	ValidateName func(string) error
}

// nameAttempts bounds how often a rejected project name is asked again.
const nameAttempts = 3

// AskProject asks every question whose answer is not already in preset.
func AskProject(a Asker, preset ProjectAnswers, q Questionnaire) (ProjectAnswers, error) {
	answers := preset
	var err error

	if answers.Name == "" {
		if answers.Name, err = askName(a, q.ValidateName); err != nil {
			return answers, err
		}
	}

	if answers.Framework == "" {
		options := make([]SelectOption, 0, len(q.Frameworks))
		for _, f := range q.Frameworks {
			options = append(options, SelectOption{Label: f, Value: f})
		}
		choice, err := a.Select("Select a frontend framework:", options)
		if err != nil {
			return answers, err
		}
		answers.Framework = choice.Value
	}

	if q.AskBackend {
		if answers.IncludeBackend, err = a.YesNo("Do you want to include an Express backend?", true); err != nil {
			return answers, err
		}
	}

	if answers.Requirements == "" {
		if answers.Requirements, err = a.Text("Enter user requirements:", DefaultRequirements, nil); err != nil {
			return answers, err
		}
	}
	return answers, nil
}

// askName re-asks while validate rejects the reply. The terminal prompt
// validates in place; line-based askers rely on the loop.
func askName(a Asker, validate func(string) error) (string, error) {
	var verr error
	for i := 0; i < nameAttempts; i++ {
		name, err := a.Text("Enter your project name:", DefaultProjectName, validate)
		if err != nil {
			return "", err
		}
		if validate == nil {
			return name, nil
		}
		if verr = validate(name); verr == nil {
			return name, nil
		}
		Warn(verr.Error())
	}
	return "", verr
}
