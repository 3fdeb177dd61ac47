package process

import (
	"html"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/article-dl/pkg/config"
)

// Template placeholders
const (
	PlaceholderTitle   = "{{title}}"
	PlaceholderURL     = "{{url}}"
	PlaceholderContent = "{{content}}"
)

// TitleSuffix is the site branding appended to every article title
const TitleSuffix = "-CSDN博客"

// DefaultTemplate is the built-in document template
const DefaultTemplate = "<!DOCTYPE html>" +
	"<html lang='zh-CN'>" +
	"<head><meta charset='UTF-8'><title>{{title}}</title>" +
	"<style>" +
	"  body { font-family: 'PingFang SC', 'Microsoft YaHei', SimHei, sans-serif; line-height: 1.6; padding: 20px; background-color: #f6f8fa; }" +
	"  .paper { max-width: 900px; margin: 0 auto; background: #fff; padding: 40px; box-shadow: 0 2px 12px 0 rgba(0,0,0,0.1); }" +
	"  h1 { font-size: 24px; color: #2c3e50; border-bottom: 1px solid #eaecef; padding-bottom: 10px; }" +
	"  a { color: #0366d6; text-decoration: none; }" +
	"  blockquote { border-left: 4px solid #dfe2e5; color: #6a737d; padding-left: 10px; margin: 10px 0; }" +
	"  code { font-family: Consolas, Monaco, monospace; background: rgba(27,31,35,0.05); padding: 0.2em 0.4em; border-radius: 3px; }" +
	"  pre { background: #282c34; color: #abb2bf; padding: 15px; border-radius: 5px; overflow-x: auto; }" +
	"  * { font-family: 'MyChineseFont', sans-serif !important; }" +
	"</style>" +
	"</head>" +
	"<body>" +
	"  <div class='paper'>" +
	"    <h1>{{title}}</h1>" +
	"    <div style='color: #888; font-size: 12px; margin-bottom: 20px;'>原文链接: <a href='{{url}}'>{{url}}</a></div>" +
	"    <div id='content'>{{content}}</div>" +
	"  </div>" +
	"</body></html>"

// NormalizeTitle strips the site branding suffix and surrounding whitespace
func NormalizeTitle(raw string) string {
	return strings.TrimSpace(strings.ReplaceAll(raw, TitleSuffix, ""))
}

// ResolveTemplate loads the template at path once, before a batch starts.
// An empty path or a read failure yields DefaultTemplate; failures are logged as warnings.
func ResolveTemplate(path string, log *logrus.Entry) string {
	if path == "" {
		log.Debug("No template path configured, using built-in template")
		return DefaultTemplate
	}
	data, err := os.ReadFile(path)
	if err != nil {
		log.Warnf("Failed to read template '%s', falling back to built-in template: %v", path, err)
		return DefaultTemplate
	}
	tmpl := string(data)
	if !strings.Contains(tmpl, PlaceholderContent) {
		log.Warnf("Template '%s' has no %s placeholder; documents will carry no article body", path, PlaceholderContent)
	}
	log.Infof("Loaded template from '%s'", path)
	return tmpl
}

// TemplateFromConfig returns the inline template when set, otherwise the resolved template_path
func TemplateFromConfig(cfg *config.AppConfig, log *logrus.Entry) string {
	if cfg.Template != "" {
		return cfg.Template
	}
	return ResolveTemplate(cfg.TemplatePath, log)
}

// Render substitutes the placeholders in a single pass so values containing placeholder text are never re-expanded.
// Title and URL are HTML-escaped; content is inserted verbatim.
func Render(tmpl, title, sourceURL, content string) string {
	r := strings.NewReplacer(
		PlaceholderTitle, html.EscapeString(title),
		PlaceholderURL, html.EscapeString(sourceURL),
		PlaceholderContent, content,
	)
	return r.Replace(tmpl)
}
