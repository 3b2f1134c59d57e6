package util

type Envelope map[string]any

func Error(message string) Envelope {
	return Envelope{"success": false, "error": message}
}

func Message(message string) Envelope {
	return Envelope{"success": true, "message": message}
}

func Data(key string, value any) Envelope {
	return Envelope{"success": true, key: value}
}
