// Package catalog holds the canned demo content and persona strings used by
// the reply composer. Defaults are compiled in; a YAML file can override any
// field for a deployment.
package catalog

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// Catalog is the full set of canned reply content.
type Catalog struct {
	// Demo media URLs per attachment kind keyword.
	Attachments map[string]string `yaml:"attachments"`

	// Metadata attached to plain outbound texts.
	DefaultMetadata string `yaml:"defaultMetadata"`

	ButtonText string `yaml:"buttonText"`
	MenuText   string `yaml:"menuText"`
	DemoURL    string `yaml:"demoUrl"`
	PhoneDemo  string `yaml:"phoneDemo"`

	QuickReplyQuestion string   `yaml:"quickReplyQuestion"`
	GenreOptions       []string `yaml:"genreOptions"`

	QuizQuestion string `yaml:"quizQuestion"`
	QuizAnswer   string `yaml:"quizAnswer"`

	HelpText    string   `yaml:"helpText"`
	HelpOptions []string `yaml:"helpOptions"`

	// Persona strings, localized.
	NotUnderstood   string `yaml:"notUnderstood"`
	TrainingOK      string `yaml:"trainingOk"`
	TrainingFailed  string `yaml:"trainingFailed"`
	AttachmentAck   string `yaml:"attachmentAck"`
	AuthAck         string `yaml:"authAck"`
	PostbackAck     string `yaml:"postbackAck"`
	AnswerAckFormat string `yaml:"answerAckFormat"`
	AnswerCorrect   string `yaml:"answerCorrect"`
	AnswerWrong     string `yaml:"answerWrong"`
	QuizExpired     string `yaml:"quizExpired"`
	BotCommandAck   string `yaml:"botCommandAck"`
}

// Default returns the compiled-in demo content.
func Default() *Catalog {
	return &Catalog{
		Attachments: map[string]string{
			"image": "http://messengerdemo.parseapp.com/img/rift.png",
			"gif":   "http://messengerdemo.parseapp.com/img/instagram_logo.gif",
			"audio": "http://messengerdemo.parseapp.com/audio/sample.mp3",
			"video": "http://messengerdemo.parseapp.com/video/allofus480.mov",
			"file":  "http://messengerdemo.parseapp.com/files/test.txt",
		},
		DefaultMetadata: "DEVELOPER_DEFINED_METADATA",

		ButtonText: "This is test text",
		MenuText:   "Menu",
		DemoURL:    "https://www.oculus.com/en-us/rift/",
		PhoneDemo:  "+16505551234",

		QuickReplyQuestion: "What's your favorite movie genre?",
		GenreOptions:       []string{"Action", "Comedy", "Drama"},

		QuizQuestion: "test quiz message",
		QuizAnswer:   "2",

		HelpText:    "อยากรู้วิธีสั่งข้ารึ จะให้ข้าทำอะไร?",
		HelpOptions: []string{"สอนข้า", "ส่งข้อความ"},

		NotUnderstood:   "ข้าไม่เข้าใจที่เจ้าพูด",
		TrainingOK:      "ข้าจำได้แล้ว ลองทักข้าใหม่ซิ อิอิ",
		TrainingFailed:  "ข้าว่ามีบางอย่างผิดพลาด ลองใหม่ซิ",
		AttachmentAck:   "Message with attachment received",
		AuthAck:         "Authentication successful",
		PostbackAck:     "Postback called",
		AnswerAckFormat: "You choose answer : %s",
		AnswerCorrect:   "You choose correct answer",
		AnswerWrong:     "You choose wrong answer",
		QuizExpired:     "Quiz expired, send #quiz to start a new one",
		BotCommandAck:   "bot command",
	}
}

// Load returns the defaults overlaid with the YAML file at path. An empty
// path or a missing file yields the plain defaults.
func Load(path string, logger *slog.Logger) (*Catalog, error) {
	cat := Default()
	if path == "" {
		return cat, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		logger.Debug("catalog file does not exist, using defaults", "path", path)
		return cat, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	if err := yaml.Unmarshal(data, cat); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	logger.Info("loaded catalog overrides", "path", path)
	return cat, nil
}

// AnswerAck formats the acknowledgment for a chosen quick-reply answer.
func (c *Catalog) AnswerAck(choice string) string {
	return fmt.Sprintf(c.AnswerAckFormat, choice)
}
