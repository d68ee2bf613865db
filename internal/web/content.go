package web

// Site is the document metadata shared by every page.
type Site struct {
	Title       string
	Description string
	Lang        string
}

// Card is a single feature tile on the home page.
type Card struct {
	Title       string
	Description string
}

// Link is a call-to-action anchor.
type Link struct {
	Label string
	Href  string
}

// Home is the body content of the landing page.
type Home struct {
	Heading  string
	Subtitle string
	Cards    []Card
	Action   Link
}

// Page is everything the layout and home templates render.
type Page struct {
	Site Site
	Home Home
}

// DefaultPage returns the landing page content. apiPath is the greeting
// endpoint the call-to-action links to.
func DefaultPage(apiPath string) Page {
	return Page{
		Site: Site{
			Title:       "Node.js Development Environment",
			Description: "シンプルなTypeScript/React/Next.jsサンプルプロジェクト",
			Lang:        "ja",
		},
		Home: Home{
			Heading:  "Node.js 開発環境",
			Subtitle: "TypeScript + React + Next.js + Tailwind CSS",
			Cards: []Card{
				{Title: "🚀 TypeScript", Description: "型安全なJavaScriptで開発効率を向上"},
				{Title: "⚛️ React", Description: "コンポーネントベースのUI開発"},
				{Title: "🔥 Next.js", Description: "本番環境対応のReactフレームワーク"},
			},
			Action: Link{Label: "API テスト", Href: apiPath},
		},
	}
}
