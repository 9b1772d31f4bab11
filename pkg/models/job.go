package models

// JobRequest is everything a single run needs, read once from the environment.
type JobRequest struct {
	ID            string `json:"id"`
	NotebookURI   string `json:"notebook"`
	Parameters    string `json:"parameters,omitempty"`
	WebhookURL    string `json:"webhook,omitempty"`
	WebhookSecret string `json:"-"`
	PythonVersion string `json:"python_version"`

	// OutputURI, when set, receives a copy of the executed notebook.
	OutputURI string `json:"output_uri,omitempty"`
}

// HasParameters reports whether the job was given a parameters payload.
func (r JobRequest) HasParameters() bool {
	return r.Parameters != ""
}

// OutcomeStatus is the terminal status of a job, as sent on the webhook.
type OutcomeStatus string

const (
	OutcomeSuccess OutcomeStatus = "success"
	OutcomeFailed  OutcomeStatus = "failed"
)

// SuccessMessage is reported when the notebook ran to completion.
const SuccessMessage = "Notebook execution completed successfully"

// Outcome is the single result of a job run.
type Outcome struct {
	Status  OutcomeStatus `json:"status"`
	Message string        `json:"message"`
}

// Succeeded builds a success outcome.
func Succeeded(message string) Outcome {
	return Outcome{Status: OutcomeSuccess, Message: message}
}

// Failed builds a failure outcome from err. A nil err still yields a failure.
func Failed(err error) Outcome {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return Outcome{Status: OutcomeFailed, Message: msg}
}

func (o Outcome) IsSuccess() bool {
	return o.Status == OutcomeSuccess
}

// ExitCode maps the outcome to the process exit status.
func (o Outcome) ExitCode() int {
	if o.IsSuccess() {
		return 0
	}
	return 1
}
