package browser

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/go-rod/rod"

	"github.com/absmartly/vedit/change"
)

// positionToAdjacent maps change positions onto insertAdjacentHTML
// keywords.
var positionToAdjacent = map[change.Position]string{
	change.PosBefore:     "beforebegin",
	change.PosAfter:      "afterend",
	change.PosFirstChild: "afterbegin",
	change.PosLastChild:  "beforeend",
}

// Apply replays the enabled changes of list into the live page. A change
// whose selector matches nothing is logged and skipped; the rest of the
// list still applies. The first evaluation error aborts.
func (d *Driver) Apply(ctx context.Context, page *rod.Page, list []change.Change) error {
	p := page.Context(ctx)
	for _, c := range change.FilterEnabled(list) {
		if err := d.applyOne(p, c); err != nil {
			return fmt.Errorf("browser: apply %s %s: %w", c.Type, c.Selector, err)
		}
	}
	return nil
}

func (d *Driver) applyOne(p *rod.Page, c change.Change) error {
	switch c.Type {
	case change.TypeText:
		return d.eval(p, c.Selector, `(el, v) => { el.textContent = v; }`, c.TextValue)

	case change.TypeHTML:
		return d.eval(p, c.Selector, `(el, v) => { el.innerHTML = v; }`, c.TextValue)

	case change.TypeStyle:
		important := ""
		if c.Important {
			important = "important"
		}
		if c.Mode == change.ModeReplace {
			if err := d.eval(p, c.Selector,
				`(el) => { el.removeAttribute('style'); }`); err != nil {
				return err
			}
		}
		return d.eval(p, c.Selector, `(el, styles, prio) => {
			for (const [k, v] of Object.entries(styles)) {
				el.style.setProperty(k, v, prio);
			}
		}`, c.Styles, important)

	case change.TypeStyleRules:
		css := styleRulesCSS(c.Selector, c.StyleRules)
		_, err := p.Eval(`(css) => {
			const tag = document.createElement('style');
			tag.setAttribute('data-absmartly-style', '');
			tag.textContent = css;
			document.head.appendChild(tag);
		}`, css)
		return err

	case change.TypeClass:
		return d.eval(p, c.Selector, `(el, add, remove) => {
			for (const cls of add) el.classList.add(cls);
			for (const cls of remove) el.classList.remove(cls);
		}`, c.Class.Add, c.Class.Remove)

	case change.TypeAttribute:
		return d.eval(p, c.Selector, `(el, attrs) => {
			for (const [k, v] of Object.entries(attrs)) {
				if (v === '') el.removeAttribute(k);
				else el.setAttribute(k, v);
			}
		}`, c.Attributes)

	case change.TypeJavaScript:
		_, err := p.Eval(`(src) => { new Function(src)(); }`, c.TextValue)
		return err

	case change.TypeMove:
		pos, ok := positionToAdjacent[c.Position]
		if !ok {
			return fmt.Errorf("bad position %q", c.Position)
		}
		return d.eval(p, c.Selector, `(el, target, pos) => {
			const ref = document.querySelector(target);
			if (!ref) return;
			ref.insertAdjacentElement(pos, el);
		}`, c.TargetSelector, pos)

	case change.TypeRemove:
		return d.eval(p, c.Selector, `(el) => { el.remove(); }`)

	case change.TypeInsert, change.TypeCreate:
		pos, ok := positionToAdjacent[c.Position]
		if !ok {
			pos = "beforeend"
		}
		ref := c.TargetSelector
		if ref == "" {
			ref = c.Selector
		}
		_, err := p.Eval(`(sel, pos, markup) => {
			const ref = document.querySelector(sel);
			if (!ref) return;
			ref.insertAdjacentHTML(pos, markup);
		}`, ref, pos, c.HTML)
		return err

	default:
		return fmt.Errorf("unknown change type %q", c.Type)
	}
}

// eval runs script against the first selector match. Zero matches log
// and skip rather than fail: the page may legitimately not render the
// element in this state.
func (d *Driver) eval(p *rod.Page, selector, script string, args ...any) error {
	res, err := p.Eval(`(sel) => document.querySelector(sel) !== null`, selector)
	if err != nil {
		return err
	}
	if !res.Value.Bool() {
		d.cfg.Logger.Warn("browser: selector matched nothing", "selector", selector)
		return nil
	}

	wrapped := fmt.Sprintf(`(sel, ...rest) => {
		const el = document.querySelector(sel);
		return (%s)(el, ...rest);
	}`, script)
	evalArgs := append([]any{selector}, args...)
	_, err = p.Eval(wrapped, evalArgs...)
	return err
}

func styleRulesCSS(selector string, rules map[string]map[string]string) string {
	var b strings.Builder
	states := make([]string, 0, len(rules))
	for state := range rules {
		states = append(states, state)
	}
	sort.Strings(states)

	for _, state := range states {
		sel := selector
		if state != "" && state != "normal" {
			sel += ":" + state
		}
		b.WriteString(sel)
		b.WriteString(" { ")
		props := rules[state]
		keys := make([]string, 0, len(props))
		for k := range props {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			b.WriteString(k)
			b.WriteString(": ")
			b.WriteString(props[k])
			b.WriteString("; ")
		}
		b.WriteString("}\n")
	}
	return b.String()
}
