package config

func Defaults() *Config {
	return &Config{
		General: GeneralConfig{
			LogLevel: "info",
		},
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        5000,
			WebhookPath: "/webhook",
		},
		Messenger: MessengerConfig{
			GraphBaseURL:       "https://graph.facebook.com",
			APIVersion:         "v12.0",
			SendTimeoutSeconds: 15,
			SendMaxRetries:     2,
		},
		ReplyService: ReplyServiceConfig{
			BaseURL:        "https://reply-msg-parse-server.herokuapp.com/parse",
			TimeoutSeconds: 10,
		},
		Quiz: QuizConfig{
			DBPath:      "~/.pagebot/quiz.db",
			TTLMinutes:  15,
			OptionCount: 4,
		},
		Dispatch: DispatchConfig{
			BufferSize: 100,
			Workers:    4,
		},
		Metrics: MetricsConfig{
			Enabled:  false,
			Endpoint: "/metrics",
		},
	}
}
