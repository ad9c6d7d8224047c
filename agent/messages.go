package agent

import (
	"fmt"
	"slices"
	"strings"

	"tanyabot/qa"
)

// User-facing texts. The bot speaks Indonesian.
const (
	WelcomeText = "Selamat datang! Kirim pesan untuk memulai percakapan. 😊"
	HelpText    = "/start - Memulai percakapan\n" +
		"/help - Menampilkan daftar perintah\n" +
		"/about - Informasi tentang bot\n" +
		"/feedback ya|tidak - Menanggapi jawaban terakhir\n" +
		"/topics - Lihat topik yang sudah dibahas\n" +
		"/suggest - Saran topik untuk didiskusikan"
	AboutText = "Saya adalah bot yang belajar dari percakapan Anda untuk memberikan jawaban yang lebih baik! 🤖"

	EmptyText        = "Silakan kirim pesan."
	FilteredText     = "Maaf, saya tidak dapat memberikan informasi tentang itu."
	ThrottledText    = "Anda sudah menanyakan hal ini beberapa kali."
	EvalFailedText   = "Maaf, saya tidak dapat menghitung itu."
	TeachMeText      = "Sepertinya saya tidak tahu jawaban untuk itu. Silakan kirim jawaban Anda untuk mengajarkan saya."
	SaveFailedText   = "Maaf, saya gagal menyimpan jawaban itu."
	FeedbackPrompt   = "Apakah jawaban ini membantu? Balas 'ya' atau 'tidak'."
	FeedbackThanks   = "Terima kasih atas feedback! Saya senang jawaban saya membantu. 😊"
	FeedbackArgText  = "Silakan jawab dengan 'ya' atau 'tidak'."
	NotExpectingText = "Saya tidak sedang menunggu tanggapan Anda."
	NoTopicsText     = "Belum ada topik yang dibahas."
)

const (
	feedbackYes = "ya"
	feedbackNo  = "tidak"
)

func isFeedbackToken(text string) bool {
	return text == feedbackYes || text == feedbackNo
}

func learnedText(query string) string {
	return fmt.Sprintf("Saya telah belajar tentang: %s. Terima kasih!", query)
}

func confirmText(query string) string {
	return fmt.Sprintf("Simpan jawaban ini untuk '%s'? Balas 'ya' atau 'tidak'.", query)
}

func feedbackSorryText(query string) string {
	return fmt.Sprintf("Maaf jika jawaban saya tidak membantu untuk '%s'. Saya akan berusaha lebih baik. 😊", query)
}

func topicsText(topics []string) string {
	if len(topics) == 0 {
		return NoTopicsText
	}
	return "Topik yang sudah dibahas: " + strings.Join(topics, ", ")
}

// followUps are checked in order; the first interrogative found in the query wins.
var followUps = []struct {
	word     string
	question string
}{
	{"apa", "Bisa jelaskan lebih lanjut tentang apa yang Anda maksud?"},
	{"kenapa", "Apa yang membuat Anda penasaran tentang itu?"},
	{"siapa", "Apakah Anda merujuk kepada seseorang atau sesuatu yang spesifik?"},
	{"bagaimana", "Bagaimana perasaan Anda tentang itu?"},
}

// followUpQuestion returns a question inviting the user to say more, or "".
func followUpQuestion(query string) string {
	for _, f := range followUps {
		if strings.Contains(query, f.word) {
			return f.question
		}
	}
	return ""
}

// suggestionTopics are offered as conversation starters.
var suggestionTopics = []string{
	"Kesehatan mental",
	"Inovasi teknologi",
	"Seni dan budaya",
	"Perubahan iklim",
	"Sejarah dunia",
	"Pendidikan di era digital",
	"Ekonomi global",
	"Olahraga dan kebugaran",
	"Wisata dan petualangan",
	"Makanan dan kuliner",
	"Kecerdasan buatan",
	"Etika dalam teknologi",
	"Tren mode saat ini",
	"Masyarakat dan budaya",
	"Literatur klasik",
}

const suggestionCount = 3

// suggestTopics samples n distinct topics without replacement.
func suggestTopics(c qa.Chooser, n int) []string {
	pool := slices.Clone(suggestionTopics)
	n = min(n, len(pool))
	for i := range n {
		j := i + c.Choose(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:n]
}

func suggestionText(topics []string) string {
	return "Coba diskusikan topik ini: " + strings.Join(topics, ", ")
}
