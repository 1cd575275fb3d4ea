package transcribe

import "errors"

var (
	// ErrNoSpeech means the provider found no intelligible speech.
	ErrNoSpeech = errors.New("no speech detected")
	// ErrProviderUnavailable means the provider could not be reached or is
	// temporarily failing.
	ErrProviderUnavailable = errors.New("transcription provider unavailable")
	// ErrFailed covers every other transcription failure.
	ErrFailed = errors.New("transcription failed")
)

// Kind classifies a transcription outcome.
type Kind int

const (
	KindOK Kind = iota
	KindNoSpeech
	KindProviderUnavailable
	KindOther
)

// String returns the log label of k.
func (k Kind) String() string {
	switch k {
	case KindOK:
		return "ok"
	case KindNoSpeech:
		return "no_speech"
	case KindProviderUnavailable:
		return "provider_unavailable"
	default:
		return "other"
	}
}

// Classify maps an error returned by Client.Transcribe to its Kind.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return KindOK
	case errors.Is(err, ErrNoSpeech):
		return KindNoSpeech
	case errors.Is(err, ErrProviderUnavailable):
		return KindProviderUnavailable
	default:
		return KindOther
	}
}

// Describe renders a transcription failure as the user-facing text stored
// when failures are kept as the motto.
func Describe(err error) string {
	switch Classify(err) {
	case KindOK:
		return ""
	case KindNoSpeech:
		return "Unable to transcribe audio: Unknown Value Error"
	case KindProviderUnavailable:
		return "Unable to transcribe audio: Request Error (check your network connection)"
	default:
		return "Error during transcription: " + err.Error()
	}
}
