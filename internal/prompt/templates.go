package prompt

import "github.com/suykerbuyk/vault-research/internal/classify"

const personTemplate = `この質問に対する回答はObsidianのノートに記載されます。チャットではないので、質問文は含めないでください。
特に基本プロフィール・職歴・経歴や実績・ネットワーク（業界内のつながり）などを詳細にまとめてください。
アウトプットはマークダウン形式で出力してください。なお、見出しは最大h2から出力してください。
出来うる限り、根拠となるURLをリンクとして出力してください。
以下の情報を持つ人物について調べてください`

const companyTemplate = `この質問に対する回答はObsidianのノートに記載されます。チャットではないので、質問文は含めないでください。
企業の事業内容・沿革・強み・業界での立ち位置・主要なプロダクトやサービス・競合との違いなどを詳細にまとめてください。
アウトプットはマークダウン形式で出力してください。なお、見出しテキストは最大h2まで出力してください。出来うる限り、根拠となるURLをリンクとして出力してください。
以下の情報を持つ企業について調べてください`

const productTemplate = `この質問に対する回答はObsidianのノートに記載されます。チャットではないので、質問文は含めないでください。
製品の概要・主な機能・価格体系・対象顧客・導入事例・競合製品との違いなどを詳細にまとめてください。
アウトプットはマークダウン形式で出力してください。なお、見出しテキストは最大h2まで出力してください。出来うる限り、根拠となるURLをリンクとして出力してください。
以下の情報を持つ製品について調べてください`

// DefaultTemplates returns the built-in prompt template per classification.
func DefaultTemplates() map[classify.Classification]string {
	return map[classify.Classification]string{
		classify.Person:  personTemplate,
		classify.Company: companyTemplate,
		classify.Product: productTemplate,
	}
}
