package transformations

// Merge folds patch into base and returns the effective configuration.
// A nil patch yields a copy of base. Otherwise members present in either
// operand survive, parameter objects are combined field by field and a
// field set in patch overrides the one in base. Neither input is modified
// and the result shares no pointers with them.
func Merge(base Config, patch *Config) Config {
	out := Config{
		Restore:          cloneBool(base.Restore),
		RemoveBackground: cloneBool(base.RemoveBackground),
		FillBackground:   cloneBool(base.FillBackground),
		Remove:           mergeRemove(base.Remove, nil),
		Recolor:          mergeRecolor(base.Recolor, nil),
	}
	if patch == nil {
		return out
	}

	out.Restore = pickBool(out.Restore, patch.Restore)
	out.RemoveBackground = pickBool(out.RemoveBackground, patch.RemoveBackground)
	out.FillBackground = pickBool(out.FillBackground, patch.FillBackground)
	out.Remove = mergeRemove(base.Remove, patch.Remove)
	out.Recolor = mergeRecolor(base.Recolor, patch.Recolor)
	return out
}

func mergeRemove(base, patch *RemoveParams) *RemoveParams {
	if base == nil && patch == nil {
		return nil
	}
	out := &RemoveParams{}
	if base != nil {
		out.Prompt = cloneString(base.Prompt)
		out.RemoveShadow = cloneBool(base.RemoveShadow)
		out.Multiple = cloneBool(base.Multiple)
	}
	if patch != nil {
		out.Prompt = pickString(out.Prompt, patch.Prompt)
		out.RemoveShadow = pickBool(out.RemoveShadow, patch.RemoveShadow)
		out.Multiple = pickBool(out.Multiple, patch.Multiple)
	}
	return out
}

func mergeRecolor(base, patch *RecolorParams) *RecolorParams {
	if base == nil && patch == nil {
		return nil
	}
	out := &RecolorParams{}
	if base != nil {
		out.Prompt = cloneString(base.Prompt)
		out.To = cloneString(base.To)
		out.Multiple = cloneBool(base.Multiple)
	}
	if patch != nil {
		out.Prompt = pickString(out.Prompt, patch.Prompt)
		out.To = pickString(out.To, patch.To)
		out.Multiple = pickBool(out.Multiple, patch.Multiple)
	}
	return out
}

func pickBool(cur, next *bool) *bool {
	if next != nil {
		return cloneBool(next)
	}
	return cur
}

func pickString(cur, next *string) *string {
	if next != nil {
		return cloneString(next)
	}
	return cur
}

func cloneBool(b *bool) *bool {
	if b == nil {
		return nil
	}
	v := *b
	return &v
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
