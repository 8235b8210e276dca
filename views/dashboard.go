package views

import (
	"strings"

	"github.com/a-h/templ"

	"github.com/eringen/inkwell"
	"github.com/eringen/inkwell/ai"
)

// Dashboard lists the posts the viewer can manage.
func Dashboard(p inkwell.DashboardPage) templ.Component {
	return Layout(p.Chrome, "", component(func(hw *writer) {
		hw.raw(`<h1>Dashboard</h1>`)
		if p.Message != "" {
			hw.tag("p", "notice", p.Message)
		}
		hw.raw(`<p><a class="button" href="/dashboard/create/">New post</a> <a href="/dashboard/images/">Images</a></p>`)
		if len(p.Posts) == 0 {
			hw.tag("p", "empty", "You have not written any posts yet.")
			return
		}
		hw.raw(`<table class="posts"><thead><tr><th>Title</th><th>Status</th><th>Categories</th><th>Created</th><th></th></tr></thead><tbody>`)
		for _, post := range p.Posts {
			editURL := "/dashboard/post/" + inkwell.PathEscape(post.ID) + "/"
			hw.raw(`<tr><td><a`)
			hw.href(editURL)
			hw.raw(`>`)
			hw.text(post.Title)
			hw.raw(`</a></td><td>`)
			if post.Published {
				hw.raw(`<span class="badge">Published</span>`)
			} else {
				hw.raw(`<span class="badge draft">Draft</span>`)
			}
			if post.AIGenerated {
				hw.raw(` <span class="badge ai">AI</span>`)
			}
			hw.raw(`</td><td>`)
			hw.text(strings.Join(namesOf(post.Categories, categoryName), ", "))
			hw.raw(`</td><td>`)
			hw.text(formatDate(post.CreatedAt))
			hw.raw(`</td><td>`)
			if post.Published {
				hw.raw(`<a`)
				hw.href(post.Link())
				hw.raw(`>View</a> `)
			}
			hw.raw(`<button class="danger"`)
			hw.attr("data-delete", editURL)
			hw.attr("data-confirm", `Delete "`+post.Title+`"?`)
			hw.raw(`>Delete</button></td></tr>`)
		}
		hw.raw(`</tbody></table>`)
	}))
}

// PostForm is the create and edit form with the AI assist panel.
func PostForm(p inkwell.PostFormPage) templ.Component {
	return Layout(p.Chrome, "", component(func(hw *writer) {
		post := p.Post
		if post.ID == "" {
			hw.raw(`<h1>New post</h1>`)
		} else {
			hw.raw(`<h1>Edit post</h1>`)
		}
		hw.raw(`<form class="editor" method="post" action="/dashboard/save/">`)
		csrfField(hw, p.CSRF)
		hw.raw(`<input type="hidden" name="id"`)
		hw.attr("value", post.ID)
		hw.raw(`>`)
		textInput(hw, "Title", "title", post.Title, true)
		textInput(hw, "Slug", "slug", post.Slug, false)
		hw.raw(`<label>Summary<textarea id="summary" name="summary" rows="3">`)
		hw.text(post.Summary)
		hw.raw(`</textarea></label>`)
		hw.raw(`<label>Content (Markdown)<textarea id="content" name="content">`)
		hw.text(post.Content)
		hw.raw(`</textarea></label>`)
		textInput(hw, "Featured image URL", "featured_image", post.FeaturedImage, false)

		textInput(hw, "Categories (comma separated)", "categories", strings.Join(namesOf(post.Categories, categoryName), ", "), false)
		hint(hw, "Existing categories", namesOf(p.Categories, categoryName))
		textInput(hw, "Tags (comma separated)", "tags", strings.Join(namesOf(post.Tags, tagName), ", "), false)
		hint(hw, "Existing tags", namesOf(p.Tags, tagName))

		checkbox(hw, "Published", "published", post.Published)
		checkbox(hw, "Written with AI assistance", "ai_generated", post.AIGenerated)
		hw.raw(`<p><button type="submit">Save</button> <a href="/dashboard/">Cancel</a></p></form>`)

		if p.AIEnabled {
			hw.raw(`<section class="assist"><h2>AI assist</h2>`)
			hw.raw(`<form method="post" action="/dashboard/ai/" data-fragment="#ai-result">`)
			csrfField(hw, p.CSRF)
			hw.raw(`<label>Task <select name="type">`)
			for _, t := range p.TaskTypes {
				hw.raw(`<option`)
				hw.attr("value", string(t))
				hw.raw(`>`)
				hw.text(t.Label())
				hw.raw(`</option>`)
			}
			hw.raw(`</select></label><label>Prompt<textarea name="prompt" rows="4"></textarea></label>`)
			hw.raw(`<button type="submit">Generate</button></form><div id="ai-result"></div></section>`)
		}
	}))
}

func textInput(hw *writer, label, name, value string, required bool) {
	hw.raw(`<label>`)
	hw.text(label)
	hw.raw(`<input type="text"`)
	hw.attr("id", name)
	hw.attr("name", name)
	hw.attr("value", value)
	if required {
		hw.raw(` required`)
	}
	hw.raw(`></label>`)
}

func checkbox(hw *writer, label, name string, checked bool) {
	hw.raw(`<label><span><input type="checkbox" value="1"`)
	hw.attr("name", name)
	if checked {
		hw.raw(` checked`)
	}
	hw.raw(`> `)
	hw.text(label)
	hw.raw(`</span></label>`)
}

func hint(hw *writer, label string, names []string) {
	if len(names) == 0 {
		return
	}
	hw.tag("p", "meta", label+": "+strings.Join(names, ", "))
}

func namesOf[T any](items []T, name func(T) string) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = name(it)
	}
	return out
}

func categoryName(c inkwell.Category) string { return c.Name }
func tagName(t inkwell.Tag) string           { return t.Name }

// AIResult is the fragment returned to the assist panel.
func AIResult(r inkwell.AIResult) templ.Component {
	return component(func(hw *writer) {
		if r.Error != "" {
			hw.tag("p", "error", r.Error)
			return
		}
		into := "#content"
		if r.Task == ai.TaskSummary {
			into = "#summary"
		}
		hw.raw(`<div class="assist">`)
		hw.tag("h3", "", r.Task.Label())
		hw.raw(`<pre id="ai-output">`)
		hw.text(r.Result)
		hw.raw(`</pre><button type="button" data-insert="#ai-output"`)
		hw.attr("data-into", into)
		hw.raw(`>Insert into post</button></div>`)
	})
}

// Images is the upload manager. As a fragment only the grid is rendered.
func Images(p inkwell.ImagesPage) templ.Component {
	grid := component(func(hw *writer) {
		if len(p.Images) == 0 {
			hw.tag("p", "empty", "No images uploaded yet.")
			return
		}
		hw.raw(`<div class="images">`)
		for _, img := range p.Images {
			hw.raw(`<figure><img loading="lazy"`)
			hw.attr("src", img.URL())
			hw.attr("alt", img.OriginalName)
			hw.raw(`><figcaption><input type="text" readonly`)
			hw.attr("value", img.URL())
			hw.raw(`><span class="meta">`)
			hw.num(img.Width)
			hw.raw("&times;")
			hw.num(img.Height)
			hw.raw(`</span> <button class="danger"`)
			hw.attr("data-delete", "/dashboard/images/"+inkwell.PathEscape(img.Filename)+"/")
			hw.attr("data-confirm", "Delete "+img.Filename+"?")
			hw.raw(`>Delete</button></figcaption></figure>`)
		}
		hw.raw(`</div>`)
	})
	if p.Fragment {
		return grid
	}
	return Layout(p.Chrome, "", component(func(hw *writer) {
		hw.raw(`<h1>Images</h1>`)
		hw.raw(`<form method="post" action="/dashboard/images/" enctype="multipart/form-data" data-fragment="#images">`)
		csrfField(hw, p.CSRF)
		hw.raw(`<input type="file" name="image" accept="image/jpeg,image/png,image/gif" required> <button type="submit">Upload</button></form>`)
		hw.raw(`<div id="images">`)
		hw.component(grid)
		hw.raw(`</div>`)
	}))
}
