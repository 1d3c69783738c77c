package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/abelbrown/postbook/internal/controller"
	"github.com/abelbrown/postbook/internal/controller/controllers"
	"github.com/abelbrown/postbook/internal/model"
	"github.com/spf13/cobra"
)

// lookupTimeout bounds how long one-shot commands wait for a live query.
const lookupTimeout = 5 * time.Second

// NewListCommand prints all posts.
func NewListCommand(root *RootOptions) *cobra.Command {
	var (
		watch   bool
		jsonOut bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List posts",
		Long:  "Print every post in id order. With --watch, reprint whenever the table changes.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(root)
			if err != nil {
				return err
			}
			defer s.Close()

			out := cmd.OutOrStdout()
			ctx, cancel := context.WithTimeout(cmd.Context(), lookupTimeout)
			defer cancel()
			posts, ok := <-s.repo.GetAllItemsStream(ctx)
			if !ok {
				return fmt.Errorf("list posts: %w", context.Cause(ctx))
			}
			if err := printPosts(out, posts, jsonOut); err != nil || !watch {
				return err
			}

			ctrl := controllers.NewListController(s.repo, s.controllerConfig())
			defer ctrl.Close()
			states, release := ctrl.Observe()
			defer release()

			last := posts
			for {
				select {
				case st := <-states:
					// A nil slice is the placeholder before the first query.
					if st.Items == nil || slices.Equal(st.Items, last) {
						continue
					}
					last = st.Items
					if !jsonOut {
						fmt.Fprintln(out)
					}
					if err := printPosts(out, st.Items, jsonOut); err != nil {
						return err
					}
				case <-cmd.Context().Done():
					return nil
				}
			}
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "keep running and print every change")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print posts as JSON")
	return cmd
}

func printPosts(w io.Writer, posts []model.Post, jsonOut bool) error {
	if jsonOut {
		if posts == nil {
			posts = []model.Post{}
		}
		return json.NewEncoder(w).Encode(posts)
	}
	if len(posts) == 0 {
		_, err := fmt.Fprintln(w, "No posts.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tAUTHOR\tDESCRIPTION")
	for _, p := range posts {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", p.ID, p.Title, p.Author, p.Description)
	}
	return tw.Flush()
}

// NewAddCommand inserts a post through the entry controller.
func NewAddCommand(root *RootOptions) *cobra.Command {
	var d controller.PostDetails

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a post",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !d.Valid() {
				return errors.New("title, description and author must all be non-blank")
			}

			s, err := openSession(root)
			if err != nil {
				return err
			}
			defer s.Close()

			ctrl := controllers.NewEntryController(s.repo, s.controllerConfig())
			defer ctrl.Close()
			ctrl.UpdateField(d)
			if err := ctrl.Save(cmd.Context()); err != nil {
				return fmt.Errorf("save post: %w", err)
			}

			ev := <-ctrl.Events()
			fmt.Fprintf(cmd.OutOrStdout(), "Added post %d\n", ev.PostID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&d.Title, "title", "t", "", "post title")
	cmd.Flags().StringVarP(&d.Description, "description", "d", "", "post description")
	cmd.Flags().StringVarP(&d.Author, "author", "a", "", "post author")
	return cmd
}

// NewDeleteCommand removes a post through the details controller.
func NewDeleteCommand(root *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid post id %q", args[0])
			}

			s, err := openSession(root)
			if err != nil {
				return err
			}
			defer s.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), lookupTimeout)
			defer cancel()

			lookup, ok := <-s.repo.GetItemStream(ctx, id)
			if !ok {
				return fmt.Errorf("look up post %d: %w", id, context.Cause(ctx))
			}
			if !lookup.Found {
				return fmt.Errorf("post %d: %w", id, model.ErrNotFound)
			}

			ctrl := controllers.NewDetailsController(s.repo, id, s.controllerConfig())
			defer ctrl.Close()
			if err := waitDetails(ctx, ctrl, id); err != nil {
				return err
			}
			if err := ctrl.DeleteCurrent(cmd.Context()); err != nil {
				return fmt.Errorf("delete post %d: %w", id, err)
			}
			if ev := <-ctrl.Events(); ev.NoMatch {
				return fmt.Errorf("post %d changed while deleting; nothing deleted", id)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Deleted post %d\n", id)
			return nil
		},
	}
}

// waitDetails blocks until the controller has loaded post id.
func waitDetails(ctx context.Context, ctrl *controllers.DetailsController, id int64) error {
	states, release := ctrl.Observe()
	defer release()
	for {
		select {
		case st := <-states:
			if st.Details.ID == id {
				return nil
			}
		case <-ctx.Done():
			return fmt.Errorf("load post %d: %w", id, ctx.Err())
		}
	}
}
