package agent

import (
	"strings"

	"tanyabot/utils"

	"github.com/jdkato/prose/v2"
	"go.uber.org/zap"
)

// speechText prepares text for the voice channel: links are removed and only
// the first maxSentences sentences are kept. maxSentences <= 0 keeps them all.
func speechText(text string, maxSentences int, logger *zap.Logger) string {
	text = utils.StripURLs(text)
	if text == "" || maxSentences <= 0 {
		return text
	}

	doc, err := prose.NewDocument(text,
		prose.WithTagging(false),
		prose.WithExtraction(false))
	if err != nil {
		logger.Warn("Sentence segmentation failed, speaking full text", zap.Error(err))
		return text
	}

	sentences := doc.Sentences()
	if len(sentences) <= maxSentences {
		return text
	}

	parts := make([]string, 0, maxSentences)
	for _, s := range sentences[:maxSentences] {
		parts = append(parts, strings.TrimSpace(s.Text))
	}
	return strings.Join(parts, " ")
}
