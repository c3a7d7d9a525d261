package main

import (
	"fmt"

	"comexiger-backend/internal/auth"
	"comexiger-backend/internal/database"
	"comexiger-backend/internal/models"

	"github.com/spf13/cobra"
)

var (
	userName     string
	userPassword string
	userFirst    string
	userLast     string
	userRole     string
	userMesa     int
)

var userCreateCmd = &cobra.Command{
	Use:   "user:create",
	Short: "Crea un usuario (el primer administrador, por ejemplo)",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, db, l, err := connect()
		if err != nil {
			return err
		}
		if err := database.Migrate(db, l); err != nil {
			return err
		}

		in := auth.CreateUserInput{
			Username:  userName,
			Password:  userPassword,
			FirstName: userFirst,
			LastName:  userLast,
			Role:      models.UserRole(userRole),
		}
		if cmd.Flags().Changed("mesa") {
			in.Mesa = &userMesa
		}
		u, err := auth.CreateUser(cmd.Context(), db, in)
		if err != nil {
			return err
		}
		fmt.Printf("Usuario %q creado (id %d, rol %s)\n", u.Username, u.ID, u.Role)
		return nil
	},
}

func init() {
	userCreateCmd.Flags().StringVarP(&userName, "username", "u", "", "nombre de usuario")
	userCreateCmd.Flags().StringVarP(&userPassword, "password", "p", "", "contraseña (mínimo 6 caracteres)")
	userCreateCmd.Flags().StringVar(&userFirst, "first", "", "nombre")
	userCreateCmd.Flags().StringVar(&userLast, "last", "", "apellido")
	userCreateCmd.Flags().StringVarP(&userRole, "role", "r", string(models.RoleOperator), "rol del usuario")
	userCreateCmd.Flags().IntVarP(&userMesa, "mesa", "m", 0, "mesa asignada al operario")
	_ = userCreateCmd.MarkFlagRequired("username")
	_ = userCreateCmd.MarkFlagRequired("password")
	rootCmd.AddCommand(userCreateCmd)
}
