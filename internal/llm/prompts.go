package llm

import "github.com/trueai/go-detect-backend/internal/domain"

// Classification prompts per media kind. The variants differ only in the
// analysis guidance; the response contract is identical so ParseVerdict can
// handle all three.
const (
	promptImage = `You are an expert visual content analyst. Your task is to determine whether the provided image is 'AI' or 'Real'.

### Instructions:
1. Carefully analyze the visual details of the image.
2. Decide whether the image is **AI-generated** or **Real**.
3. Estimate your **confidence score** between 0 and 1.
4. Provide a **concise reason (<= 30 words)** supporting your classification. Use simple English to ensure clarity.

### Response Format (strictly follow this JSON structure):
{
"label": "AI" | "Real",
"confidence": float,
"reason": "string (<= 30 words)"
}

Return **only** the JSON object, with no extra text.`

	promptVideo = `You are an expert visual content analyst. Your task is to determine whether the provided video is 'AI' or 'Real'.

### Instructions:
1. Carefully analyze the visual consistency, physics, and artifacts in the video.
2. Decide whether the video is **AI-generated** or **Real**.
3. Estimate your **confidence score** between 0 and 1.
4. Provide a **concise reason (<= 30 words)** supporting your classification. Use simple English to ensure clarity.

### Response Format (strictly follow this JSON structure):
{
"label": "AI" | "Real",
"confidence": float,
"reason": "string (<= 30 words)"
}

Return **only** the JSON object, with no extra text.`

	promptAudio = `You are an expert audio forensics analyst. Your task is to determine whether the provided audio file is **AI** or **Real**.

### Instructions:
1. Listen for acoustic realism, breathing patterns, artifacts, and digital anomalies.
2. Decide whether the audio is **AI-generated** or **Real**.
3. Estimate your **confidence score** between 0 and 1.
4. Provide a **concise reason (<= 30 words)** supporting your classification. Use simple English to ensure clarity.

### Response Format (strictly follow this JSON structure):
{
"label": "AI" | "Real",
"confidence": float,
"reason": "string (<= 30 words)"
}

Return **only** the JSON object, with no extra text.`
)

// promptFor selects the classification prompt for a media kind.
func promptFor(kind domain.MediaKind) string {
	switch kind {
	case domain.MediaVideo:
		return promptVideo
	case domain.MediaAudio:
		return promptAudio
	default:
		return promptImage
	}
}
