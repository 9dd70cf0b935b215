package syllabus

/*
Moves the record of the requested kind into the other slot. A public record
becomes private. A private record becomes public but requires login; it is
never opened up to the whole world by a conversion.

The input records are not modified. The returned record keeps its ID.
*/
func Convert(records Records, requested Kind) (*Record, error) {
	if records.Both() {
		return nil, ErrAmbiguousConversion
	}

	target := records.Get(requested)
	if target == nil {
		return nil, ErrNoSuchSyllabus
	}

	converted := *target
	converted.Kind = requested.Opposite()
	if converted.Kind == KindPrivate {
		converted.AccessLevel = AccessPrivate
		converted.IsPreview = false
	} else {
		converted.AccessLevel = AccessLoggedIn
	}

	return &converted, nil
}
