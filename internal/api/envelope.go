package api

// Record is the acknowledgment record of a successful action.
type Record struct {
	ID string `json:"id"`
}

// SuccessEnvelope is the body of a successful action response.
type SuccessEnvelope struct {
	Data []Record `json:"data"`
}

// ErrorMessage is one entry of an error response.
type ErrorMessage struct {
	Message string `json:"message"`
}

// ErrorEnvelope is the body of every error response.
type ErrorEnvelope struct {
	Errors []ErrorMessage `json:"errors"`
}

// SetupEnvelope is the body of the test/setup response.
type SetupEnvelope struct {
	Data SetupData `json:"data"`
}

// SetupData carries the access token and sample values IFTTT uses for its endpoint tests.
type SetupData struct {
	AccessToken string  `json:"accessToken"`
	Samples     Samples `json:"samples"`
}

// Samples groups sample values by kind.
type Samples struct {
	Actions SampleActions `json:"actions"`
}

// SampleActions holds sample action fields keyed by action slug.
type SampleActions struct {
	RunSSHCommand SampleFields `json:"run_ssh_command"`
}

// SampleFields are the action fields as IFTTT sends them, all strings.
type SampleFields struct {
	Hostname string `json:"hostname"`
	Port     string `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	Command  string `json:"command"`
}

// NewSuccess returns the fixed acknowledgment envelope. Command output is
// never part of it.
func NewSuccess() SuccessEnvelope {
	return SuccessEnvelope{Data: []Record{{ID: "1"}}}
}

// NewError returns an error envelope carrying message.
func NewError(message string) ErrorEnvelope {
	return ErrorEnvelope{Errors: []ErrorMessage{{Message: message}}}
}

// NewSetup returns the test/setup payload. Its hostname is the test host, so
// IFTTT's endpoint tests never reach a real server.
func NewSetup(testHostname string) SetupEnvelope {
	return SetupEnvelope{
		Data: SetupData{
			AccessToken: "Test",
			Samples: Samples{
				Actions: SampleActions{
					RunSSHCommand: SampleFields{
						Hostname: testHostname,
						Port:     "22",
						Username: "testuser",
						Password: "testpassword",
						Command:  "testcommand",
					},
				},
			},
		},
	}
}

