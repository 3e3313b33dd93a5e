package security

import (
	"strings"
	"testing"
)

// TestSanitize_AllowedTags は書式タグが正しく通過することを検証する。
func TestSanitize_AllowedTags(t *testing.T) {
	sanitizer := NewDescriptionSanitizer()

	tests := []struct {
		name         string
		input        string
		wantContains []string
	}{
		{
			name:         "pタグが許可される",
			input:        "<p>手作りのマグカップ</p>",
			wantContains: []string{"<p>手作りのマグカップ</p>"},
		},
		{
			name:         "brタグが許可される",
			input:        "容量350ml<br>食洗機対応",
			wantContains: []string{"<br>", "容量350ml", "食洗機対応"},
		},
		{
			name:         "リストが許可される",
			input:        "<ul><li>陶器</li><li>日本製</li></ul>",
			wantContains: []string{"<ul>", "<li>陶器</li>", "</ul>"},
		},
		{
			name:         "強調タグが許可される",
			input:        "<strong>限定</strong><em>新色</em><b>太字</b><i>斜体</i>",
			wantContains: []string{"<strong>限定</strong>", "<em>新色</em>", "<b>太字</b>", "<i>斜体</i>"},
		},
		{
			name:         "見出しが許可される",
			input:        "<h3>お手入れ</h3>",
			wantContains: []string{"<h3>お手入れ</h3>"},
		},
		{
			name:         "httpsリンクが許可される",
			input:        `<a href="https://example.com/care">詳細</a>`,
			wantContains: []string{"<a", `href="https://example.com/care"`, "詳細", "</a>"},
		},
		{
			name:         "mailtoリンクが許可される",
			input:        `<a href="mailto:shop@example.com">お問い合わせ</a>`,
			wantContains: []string{"mailto:shop@example.com"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sanitizer.Sanitize(tt.input)
			for _, want := range tt.wantContains {
				if !strings.Contains(got, want) {
					t.Errorf("Sanitize(%q) = %q, expected to contain %q", tt.input, got, want)
				}
			}
		})
	}
}

// TestSanitize_ForbiddenContent は許可されていない要素と属性が除去されることを検証する。
func TestSanitize_ForbiddenContent(t *testing.T) {
	sanitizer := NewDescriptionSanitizer()

	tests := []struct {
		name         string
		input        string
		wantAbsent   []string
		wantContains []string
	}{
		{
			name:         "scriptタグが除去される",
			input:        `<p>説明</p><script>alert('xss')</script>`,
			wantAbsent:   []string{"<script", "alert"},
			wantContains: []string{"<p>説明</p>"},
		},
		{
			name:         "styleタグが除去される",
			input:        `<p>説明</p><style>body{display:none}</style>`,
			wantAbsent:   []string{"<style", "display:none"},
			wantContains: []string{"<p>説明</p>"},
		},
		{
			name:       "imgタグが除去される",
			input:      `<img src="https://example.com/a.png" onerror="alert(1)">`,
			wantAbsent: []string{"<img", "onerror"},
		},
		{
			name:       "iframeタグが除去される",
			input:      `<iframe src="https://evil.example.com"></iframe>`,
			wantAbsent: []string{"<iframe", "evil.example.com"},
		},
		{
			name:       "formタグが除去される",
			input:      `<form action="https://evil.example.com"><input type="text"></form>`,
			wantAbsent: []string{"<form", "<input"},
		},
		{
			name:         "on*属性が除去される",
			input:        `<p onclick="steal()">説明</p>`,
			wantAbsent:   []string{"onclick", "steal"},
			wantContains: []string{"説明"},
		},
		{
			name:         "style属性が除去される",
			input:        `<p style="color:red">説明</p>`,
			wantAbsent:   []string{"style", "color:red"},
			wantContains: []string{"<p>説明</p>"},
		},
		{
			name:         "divタグは中身だけ残る",
			input:        `<div><p>説明</p></div>`,
			wantAbsent:   []string{"<div"},
			wantContains: []string{"<p>説明</p>"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sanitizer.Sanitize(tt.input)
			for _, absent := range tt.wantAbsent {
				if strings.Contains(got, absent) {
					t.Errorf("Sanitize(%q) = %q, should NOT contain %q", tt.input, got, absent)
				}
			}
			for _, want := range tt.wantContains {
				if !strings.Contains(got, want) {
					t.Errorf("Sanitize(%q) = %q, expected to contain %q", tt.input, got, want)
				}
			}
		})
	}
}

// TestSanitize_LinkSchemes はhttps・mailto以外のリンクが無効化されることを検証する。
func TestSanitize_LinkSchemes(t *testing.T) {
	sanitizer := NewDescriptionSanitizer()

	tests := []struct {
		name       string
		input      string
		wantAbsent string
	}{
		{"javascriptスキーム", `<a href="javascript:alert(1)">x</a>`, "javascript:"},
		{"dataスキーム", `<a href="data:text/html;base64,PHNjcmlwdD4=">x</a>`, "data:"},
		{"httpスキーム", `<a href="http://example.com">x</a>`, "http://example.com"},
		{"相対URL", `<a href="/admin">x</a>`, "/admin"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sanitizer.Sanitize(tt.input)
			if strings.Contains(got, tt.wantAbsent) {
				t.Errorf("Sanitize(%q) = %q, should NOT contain %q", tt.input, got, tt.wantAbsent)
			}
		})
	}
}

// TestSanitize_AnchorAttributes はaタグにtarget="_blank"とrel="noopener noreferrer"が付与されることを検証する。
func TestSanitize_AnchorAttributes(t *testing.T) {
	sanitizer := NewDescriptionSanitizer()

	got := sanitizer.Sanitize(`<a href="https://example.com" target="_self" rel="nofollow">詳細</a>`)

	for _, want := range []string{`target="_blank"`, "noopener", "noreferrer"} {
		if !strings.Contains(got, want) {
			t.Errorf("Sanitize() = %q, expected to contain %q", got, want)
		}
	}
	if strings.Contains(got, `target="_self"`) {
		t.Errorf("Sanitize() = %q, should NOT contain target=\"_self\"", got)
	}
}

// TestSanitize_PlainText はプレーンテキストがそのまま通過することを検証する。
func TestSanitize_PlainText(t *testing.T) {
	sanitizer := NewDescriptionSanitizer()

	for _, input := range []string{"", "職人が一つずつ手作りしたマグカップです。"} {
		if got := sanitizer.Sanitize(input); got != input {
			t.Errorf("Sanitize(%q) = %q, expected unchanged", input, got)
		}
	}
}

// TestSanitize_Idempotent は二重サニタイズで結果が変わらないことを検証する。
func TestSanitize_Idempotent(t *testing.T) {
	sanitizer := NewDescriptionSanitizer()

	input := `<p>説明<strong>太字</strong></p><a href="https://example.com">リンク</a><script>x()</script>`

	first := sanitizer.Sanitize(input)
	second := sanitizer.Sanitize(first)

	if first != second {
		t.Errorf("二重サニタイズで結果が変わった: 1回目=%q, 二重=%q", first, second)
	}
}

// TestNewDescriptionSanitizer_ImplementsInterface はインターフェースを実装することを検証する。
func TestNewDescriptionSanitizer_ImplementsInterface(t *testing.T) {
	var _ DescriptionSanitizer = NewDescriptionSanitizer()
}
