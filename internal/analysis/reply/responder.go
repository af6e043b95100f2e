// Package reply picks canned assistant replies when no live model is
// available, so the product stays demonstrable without credentials.
package reply

import (
	"math/rand"
	"strings"
)

// bucket pairs trigger keywords with its canned replies. Buckets are
// evaluated in declaration order; the final catch-all has no keywords.
type bucket struct {
	keywords []string
	replies  []string
}

var buckets = []bucket{
	{
		keywords: []string{"おはよう", "朝"},
		replies: []string{
			"おはようございます！今日も素敵な一日にしましょう。どんな予定がありますか？",
			"おはようございます！朝の気分はいかがですか？今日の予定を聞かせてください。",
		},
	},
	{
		keywords: []string{"疲れ", "大変"},
		replies: []string{
			"お疲れ様です。大変だったんですね。詳しく聞かせてもらえますか？",
			"疲れているようですね。今日は何か特別なことがあったのでしょうか？",
		},
	},
	{
		keywords: []string{"楽し", "嬉し"},
		replies: []string{
			"それは素晴らしいですね！どんな楽しいことがあったのか詳しく教えてください。",
			"嬉しそうですね！その気持ちをもっと聞かせてください。",
		},
	},
	{
		keywords: []string{"食べ", "料理", "ランチ", "夕食"},
		replies: []string{
			"おいしそうですね！どんなお食事でしたか？味はいかがでしたか？",
			"食事のお話ですね。誰と一緒に食べましたか？",
		},
	},
	{
		keywords: []string{"仕事", "会社"},
		replies: []string{
			"お仕事はいかがでしたか？今日は順調に進みましたか？",
			"職場でのことですね。同僚の方々とのコミュニケーションはうまくいっていますか？",
		},
	},
	{
		// catch-all
		replies: []string{
			"なるほど、興味深いお話ですね。もう少し詳しく聞かせていただけますか？",
			"そうなんですね！その時の気持ちはどうでしたか？",
			"それはどんな体験でしたか？もう少し教えてください。",
			"興味深いですね。その後はどうなりましたか？",
			"そのお話、もっと詳しく聞きたいです。どんな気分でしたか？",
		},
	},
}

// Pick classifies the last user utterance by substring match and picks
// a reply uniformly at random from the first matching bucket.
func Pick(lastUserMessage string) string {
	utterance := strings.ToLower(strings.TrimSpace(lastUserMessage))

	for _, b := range buckets {
		if len(b.keywords) == 0 {
			return b.replies[rand.Intn(len(b.replies))]
		}
		for _, keyword := range b.keywords {
			if strings.Contains(utterance, keyword) {
				return b.replies[rand.Intn(len(b.replies))]
			}
		}
	}
	// unreachable while the catch-all bucket exists
	return buckets[len(buckets)-1].replies[0]
}
