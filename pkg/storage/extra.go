package storage

import (
	"context"
)

// attachTags loads tags for the given links in a single query.
func (d *DB) attachTags(ctx context.Context, links []*Link) error {
	if len(links) == 0 {
		return nil
	}
	byID := make(map[string]*Link, len(links))
	args := make([]interface{}, 0, len(links))
	for _, l := range links {
		byID[l.ID] = l
		args = append(args, l.ID)
	}

	rows, err := d.sql.QueryContext(ctx, "SELECT link_id, tag FROM link_tags WHERE link_id IN ("+placeholders(len(args))+") ORDER BY tag", args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var id, tag string
		if err := rows.Scan(&id, &tag); err != nil {
			return err
		}
		if l, ok := byID[id]; ok {
			l.Tags = append(l.Tags, tag)
		}
	}
	return rows.Err()
}

// ListTags returns owner's tags, most used first.
func (d *DB) ListTags(ctx context.Context, owner string) ([]TagCount, error) {
	if owner == "" {
		return nil, ErrInvalidOwner
	}
	rows, err := d.sql.QueryContext(ctx, `
		SELECT t.tag, COUNT(*)
		FROM link_tags t JOIN links l ON l.id = t.link_id
		WHERE l.owner = ?
		GROUP BY t.tag
		ORDER BY COUNT(*) DESC, t.tag`, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tags := []TagCount{}
	for rows.Next() {
		var tc TagCount
		if err := rows.Scan(&tc.Tag, &tc.Count); err != nil {
			return nil, err
		}
		tags = append(tags, tc)
	}
	return tags, rows.Err()
}

// RemoveTag detaches a tag from one of owner's links.
func (d *DB) RemoveTag(ctx context.Context, owner, id, tag string) error {
	if owner == "" {
		return ErrInvalidOwner
	}
	norm := NormalizeTags([]string{tag})
	if len(norm) == 0 {
		return ErrNotFound
	}
	res, err := d.sql.ExecContext(ctx, `
		DELETE FROM link_tags
		WHERE tag = ? AND link_id IN (
			SELECT id FROM links WHERE id = ? AND owner = ?
		)`, norm[0], id, owner)
	if err != nil {
		return err
	}
	return expectAffected(res)
}
